package middleware_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/erraggy/oasgate/declaration"
	"github.com/erraggy/oasgate/middleware"
)

const exampleAPI = `
openapi: "3.0.0"
info:
  title: Pet Store
  version: "1.0"
paths:
  /pets/{petId}:
    get:
      operationId: getPet
      parameters:
        - name: petId
          in: path
          required: true
          schema:
            type: integer
            minimum: 1
`

func ExampleNew() {
	decl, err := declaration.Parse([]byte(exampleAPI), "petstore.yaml")
	if err != nil {
		fmt.Println("Parse error:", err)
		return
	}

	app := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "pet "+r.URL.Path)
	})

	mw, err := middleware.New(app)
	if err != nil {
		fmt.Println("Middleware error:", err)
		return
	}
	if _, err := mw.AddAPI(decl); err != nil {
		fmt.Println("AddAPI error:", err)
		return
	}

	for _, target := range []string{"/pets/7", "/pets/cat"} {
		w := httptest.NewRecorder()
		mw.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
		fmt.Println(w.Code, w.Body.String())
	}
	// Output:
	// 200 pet /pets/7
	// 400 Bad Request: Wrong type, expected 'integer' for path parameter 'petId'
}

func ExampleWithOperationHandler() {
	decl, err := declaration.Parse([]byte(exampleAPI), "petstore.yaml")
	if err != nil {
		fmt.Println("Parse error:", err)
		return
	}

	mw, err := middleware.New(http.NotFoundHandler())
	if err != nil {
		fmt.Println("Middleware error:", err)
		return
	}
	_, err = mw.AddAPI(decl, middleware.WithOperationHandler("getPet",
		func(_ context.Context, ex *middleware.Exchange) (any, error) {
			id, _ := ex.Request.PathParam("petId")
			return map[string]string{"id": id}, nil
		}))
	if err != nil {
		fmt.Println("AddAPI error:", err)
		return
	}

	w := httptest.NewRecorder()
	mw.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/pets/3", nil))
	fmt.Println(w.Code, w.Header().Get("Content-Type"), w.Body.String())
	// Output: 200 application/json {"id":"3"}
}
