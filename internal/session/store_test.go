package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	ginsessions "github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

func TestMemoryKVExpiry(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	if err := kv.Set(ctx, "id1", []byte("data"), 10*time.Millisecond); err != nil {
		t.Fatalf("set: %v", err)
	}
	data, err := kv.Get(ctx, "id1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(data) != "data" {
		t.Fatalf("unexpected data: %q", data)
	}

	time.Sleep(20 * time.Millisecond)
	data, err = kv.Get(ctx, "id1")
	if err != nil {
		t.Fatalf("get after expiry: %v", err)
	}
	if data != nil {
		t.Fatalf("expected expired entry to be gone, got %q", data)
	}
}

func TestMemoryKVDelete(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	if err := kv.Set(ctx, "id1", []byte("data"), 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := kv.Delete(ctx, "id1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	data, err := kv.Get(ctx, "id1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if data != nil {
		t.Fatalf("expected deleted entry to be gone, got %q", data)
	}
	// 存在しないIDの削除はエラーにしない
	if err := kv.Delete(ctx, "missing"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
}

func testRouter(kv KV) *gin.Engine {
	gin.SetMode(gin.TestMode)
	store := NewStore(kv, []byte("test-secret"))
	router := gin.New()
	router.Use(ginsessions.Sessions("test_session", store))

	router.GET("/set", func(c *gin.Context) {
		s := ginsessions.Default(c)
		s.Set("value", "hello")
		if err := s.Save(); err != nil {
			c.String(http.StatusInternalServerError, err.Error())
			return
		}
		c.Status(http.StatusNoContent)
	})
	router.GET("/get", func(c *gin.Context) {
		s := ginsessions.Default(c)
		value, _ := s.Get("value").(string)
		c.String(http.StatusOK, value)
	})
	router.GET("/destroy", func(c *gin.Context) {
		s := ginsessions.Default(c)
		s.Clear()
		s.Options(ginsessions.Options{Path: "/", MaxAge: -1})
		if err := s.Save(); err != nil {
			c.String(http.StatusInternalServerError, err.Error())
			return
		}
		c.Status(http.StatusNoContent)
	})
	return router
}

func TestStoreRoundTrip(t *testing.T) {
	router := testRouter(NewMemoryKV())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/set", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("set failed: %d %s", rec.Code, rec.Body.String())
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected session cookie")
	}

	req := httptest.NewRequest(http.MethodGet, "/get", nil)
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Body.String() != "hello" {
		t.Fatalf("expected session value to survive, got %q", rec.Body.String())
	}
}

func TestStoreWithoutCookieIsEmpty(t *testing.T) {
	router := testRouter(NewMemoryKV())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/get", nil))
	if rec.Body.String() != "" {
		t.Fatalf("expected empty session, got %q", rec.Body.String())
	}
}

func TestStoreTamperedCookieIgnored(t *testing.T) {
	router := testRouter(NewMemoryKV())

	req := httptest.NewRequest(http.MethodGet, "/get", nil)
	req.AddCookie(&http.Cookie{Name: "test_session", Value: "forged-value"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "" {
		t.Fatalf("expected empty session for tampered cookie, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestStoreDestroyRemovesRecord(t *testing.T) {
	kv := NewMemoryKV()
	router := testRouter(kv)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/set", nil))
	cookies := rec.Result().Cookies()

	req := httptest.NewRequest(http.MethodGet, "/destroy", nil)
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("destroy failed: %d %s", rec.Code, rec.Body.String())
	}

	// 破棄後は古いクッキーでも値は戻らない
	req = httptest.NewRequest(http.MethodGet, "/get", nil)
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Body.String() != "" {
		t.Fatalf("expected destroyed session to be empty, got %q", rec.Body.String())
	}
}
