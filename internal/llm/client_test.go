package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kikiluvv/autoclip/internal/describe"
	"github.com/kikiluvv/autoclip/internal/errs"
	"github.com/kikiluvv/autoclip/internal/script"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// fakeEndpoint serves chat completions from a handler over the request body
type fakeEndpoint struct {
	mu     sync.Mutex
	bodies []string
	reply  func(call int, body gjson.Result) (int, string)
}

func (f *fakeEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
		http.NotFound(w, r)
		return
	}
	data, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.bodies = append(f.bodies, string(data))
	call := len(f.bodies)
	f.mu.Unlock()

	status, content := f.reply(call, gjson.ParseBytes(data))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if status != http.StatusOK {
		io.WriteString(w, content)
		return
	}
	json.NewEncoder(w).Encode(map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   gjson.GetBytes(data, "model").String(),
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
}

func newTestClient(t *testing.T, f *fakeEndpoint) *Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return New(Config{
		BaseURL:     srv.URL + "/v1/",
		APIKey:      "test-key",
		VisionModel: "vision-test",
		ChatModel:   "chat-test",
		Timeout:     5 * time.Second,
	}, zerolog.Nop())
}

func TestDescribe(t *testing.T) {
	f := &fakeEndpoint{reply: func(call int, body gjson.Result) (int, string) {
		return http.StatusOK, "<think>looking closely</think>\n```json\n{\"desc\": \"a cat on a mat\", \"tag\": [\"cat\", 3, \"indoor\"]}\n```"
	}}
	c := newTestClient(t, f)

	got, err := c.Describe(context.Background(), describe.Request{
		Images: [][]byte{[]byte("jpeg-1"), []byte("jpeg-2")},
		Prompt: "describe",
		Role:   "editor",
	})
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	if got.Desc != "a cat on a mat" || len(got.Tags) != 2 || got.Tags[1] != "indoor" {
		t.Errorf("Describe() = %+v", got)
	}

	body := gjson.Parse(f.bodies[0])
	if body.Get("model").String() != "vision-test" {
		t.Errorf("model = %s", body.Get("model"))
	}
	if body.Get("response_format.type").String() != "json_object" {
		t.Errorf("response_format = %s", body.Get("response_format"))
	}
	parts := body.Get("messages.1.content")
	if n := len(parts.Array()); n != 3 {
		t.Fatalf("user message has %d parts, want 3", n)
	}
	if url := parts.Get("1.image_url.url").String(); !strings.HasPrefix(url, "data:image/jpeg;base64,") {
		t.Errorf("image url = %.40s", url)
	}
}

func TestDescribeMalformed(t *testing.T) {
	replies := []string{
		`{"desc": "no tags here"}`,
		`["desc", "tag"]`,
		`{"desc": 5, "tag": []}`,
		`not json at all`,
		``,
	}
	for _, reply := range replies {
		f := &fakeEndpoint{reply: func(int, gjson.Result) (int, string) { return http.StatusOK, reply }}
		_, err := newTestClient(t, f).Describe(context.Background(), describe.Request{Images: [][]byte{{1}}})
		if !errs.Is(err, errs.Malformed) {
			t.Errorf("reply %q: error = %v, want malformed", reply, err)
		}
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		status int
		want   errs.Kind
	}{
		{http.StatusTooManyRequests, errs.Transient},
		{http.StatusBadGateway, errs.Transient},
		{http.StatusRequestTimeout, errs.Transient},
		{http.StatusUnauthorized, errs.Invalid},
		{http.StatusBadRequest, errs.Invalid},
	}
	for _, tt := range tests {
		f := &fakeEndpoint{reply: func(int, gjson.Result) (int, string) {
			return tt.status, `{"error": {"message": "nope", "type": "test_error"}}`
		}}
		_, err := newTestClient(t, f).Generate(context.Background(), script.GenerateRequest{Prompt: "p"})
		if got := errs.KindOf(err); got != tt.want {
			t.Errorf("status %d: kind = %v, want %v (%v)", tt.status, got, tt.want, err)
		}
		if len(f.bodies) != 1 {
			t.Errorf("status %d: %d requests, client must not retry on its own", tt.status, len(f.bodies))
		}
	}
}

func TestGenerateFallsBackToJSONMode(t *testing.T) {
	f := &fakeEndpoint{reply: func(call int, body gjson.Result) (int, string) {
		if body.Get("response_format.type").String() == "json_schema" {
			return http.StatusBadRequest, `{"error": {"message": "response_format json_schema is not supported by this model", "type": "invalid_request_error"}}`
		}
		return http.StatusOK, `{"video_clips": []}`
	}}
	c := newTestClient(t, f)

	raw, err := c.Generate(context.Background(), script.GenerateRequest{
		Prompt:     "write a script",
		Role:       "writer",
		SchemaName: "video_script",
		Schema:     script.Schema(),
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if raw != `{"video_clips": []}` {
		t.Errorf("Generate() = %s", raw)
	}
	if len(f.bodies) != 2 {
		t.Fatalf("%d requests, want 2", len(f.bodies))
	}

	first := gjson.Parse(f.bodies[0])
	if first.Get("response_format.json_schema.name").String() != "video_script" ||
		!first.Get("response_format.json_schema.strict").Bool() {
		t.Errorf("first request format = %s", first.Get("response_format"))
	}
	if gjson.Get(f.bodies[1], "response_format.type").String() != "json_object" {
		t.Error("fallback request should use json_object")
	}
	if first.Get("model").String() != "chat-test" {
		t.Errorf("model = %s", first.Get("model"))
	}
}

func TestCleanReply(t *testing.T) {
	tests := map[string]string{
		"  [1, 2]  ":                            "[1, 2]",
		"<think>\nplan\n</think>\n{\"a\": 1}":   `{"a": 1}`,
		"```json\n[{\"start\": 1}]\n```":        `[{"start": 1}]`,
		"```\n{}\n```":                          "{}",
		"<think>x</think>```json\n{\"b\":2}```": `{"b":2}`,
	}
	for in, want := range tests {
		if got := cleanReply(in); got != want {
			t.Errorf("cleanReply(%q) = %q, want %q", in, got, want)
		}
	}
}
