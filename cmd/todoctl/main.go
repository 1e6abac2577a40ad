package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	domain_todo "github.com/hijjiri/todo-lists/internal/domain/todo"
)

type response struct {
	Message string             `json:"message"`
	Error   string             `json:"error"`
	Lists   []domain_todo.List `json:"lists"`
	List    *domain_todo.List  `json:"list"`
	Todo    *domain_todo.Todo  `json:"todo"`
}

func main() {
	addr := flag.String("addr", "http://localhost:8080", "HTTP server address")
	mode := flag.String("mode", "lists", "mode: lists | show | create | rename | delete | add | done | undone | remove | complete-all")
	name := flag.String("name", "", "list name or todo name")
	listID := flag.Int64("list", 0, "list id")
	todoID := flag.Int64("todo", 0, "todo id")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	listPath := fmt.Sprintf("/lists/%d", *listID)
	todoPath := fmt.Sprintf("%s/todos/%d", listPath, *todoID)

	var (
		method = http.MethodPost
		path   string
		form   = url.Values{}
	)

	switch *mode {
	case "lists":
		method, path = http.MethodGet, "/lists"
	case "show":
		method, path = http.MethodGet, listPath
	case "create":
		path = "/lists"
		form.Set("list_name", *name)
	case "rename":
		path = listPath
		form.Set("list_name", *name)
	case "delete":
		path = listPath + "/destroy"
	case "add":
		path = listPath + "/todos"
		form.Set("todo", *name)
	case "done", "undone":
		path = todoPath
		form.Set("completed", fmt.Sprint(*mode == "done"))
	case "remove":
		path = todoPath + "/destroy"
	case "complete-all":
		path = listPath + "/complete_all"
	default:
		log.Fatalf("unknown mode: %s", *mode)
	}

	var body io.Reader
	if method == http.MethodPost {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(*addr, "/")+path, body)
	if err != nil {
		log.Fatalf("failed to build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("request failed: %v", err)
	}
	defer res.Body.Close()

	var out response
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		log.Fatalf("failed to decode response (status=%d): %v", res.StatusCode, err)
	}
	if out.Error != "" {
		log.Fatalf("error (status=%d): %s", res.StatusCode, out.Error)
	}
	if out.Message != "" {
		fmt.Println(out.Message)
	}

	for _, l := range out.Lists {
		printList(l)
	}
	if out.List != nil {
		printList(*out.List)
	}
	if out.Todo != nil {
		fmt.Printf("  - id=%d name=%s completed=%v\n", out.Todo.ID, out.Todo.Name, out.Todo.Completed)
	}
}

func printList(l domain_todo.List) {
	fmt.Printf("id=%d name=%s (%d/%d remaining) complete=%v\n",
		l.ID,
		l.Name,
		domain_todo.TodosRemainingCount(l),
		domain_todo.TodosCount(l),
		domain_todo.IsListComplete(l),
	)
	for _, t := range l.Todos {
		fmt.Printf("  - id=%d name=%s completed=%v\n", t.ID, t.Name, t.Completed)
	}
}
