package validator

import (
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

type loginPayload struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type pageQuery struct {
	Action string `form:"action" binding:"omitempty,max=5"`
}

func newContext(method, target, body string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(method, target, strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c
}

func TestBindTranslatesWithJSONNames(t *testing.T) {
	Setup()

	var req loginPayload
	fields := Bind(newContext(http.MethodPost, "/", `{"email":"nope","password":"123"}`), &req)
	if fields == nil {
		t.Fatal("expected validation errors")
	}
	if msg := fields["email"]; !strings.Contains(msg, "valid email") {
		t.Errorf("email message = %q", msg)
	}
	if msg := fields["password"]; !strings.Contains(msg, "at least 6") {
		t.Errorf("password message = %q", msg)
	}

	if fields := Bind(newContext(http.MethodPost, "/", `{"email":"a@b.co","password":"secret1"}`), &req); fields != nil {
		t.Errorf("valid payload rejected: %v", fields)
	}
}

func TestBindSyntaxError(t *testing.T) {
	Setup()

	var req loginPayload
	fields := Bind(newContext(http.MethodPost, "/", `{"email":`), &req)
	if _, ok := fields["detail"]; !ok {
		t.Errorf("fields = %v", fields)
	}
}

func TestBindQuery(t *testing.T) {
	Setup()

	var q pageQuery
	if fields := BindQuery(newContext(http.MethodGet, "/?action=toolong", ""), &q); fields["action"] == "" {
		t.Errorf("fields = %v", fields)
	}
	if fields := BindQuery(newContext(http.MethodGet, "/?action=login", ""), &q); fields != nil || q.Action != "login" {
		t.Errorf("fields = %v, action = %q", fields, q.Action)
	}
}

func TestFieldName(t *testing.T) {
	type tagged struct {
		JSON   string `json:"exam_id,omitempty" form:"ignored"`
		Form   string `form:"page"`
		Hidden string `json:"-" form:"status"`
		Bare   string
	}
	want := map[string]string{
		"JSON":   "exam_id",
		"Form":   "page",
		"Hidden": "status",
		"Bare":   "Bare",
	}
	typ := reflect.TypeOf(tagged{})
	for i := 0; i < typ.NumField(); i++ {
		fld := typ.Field(i)
		if got := fieldName(fld); got != want[fld.Name] {
			t.Errorf("fieldName(%s) = %q, want %q", fld.Name, got, want[fld.Name])
		}
	}
}
