package guard_test

import (
	"context"

	"github.com/goliatone/go-router"
)

// fakeContext is a minimal router.Context for exercising the guard
// without a running server.
type fakeContext struct {
	path    string
	method  string
	cookies map[string]string

	ctx        context.Context
	locals     map[any]any
	headers    map[string]string
	setCookies []*router.Cookie

	nextCalled     bool
	redirectedTo   string
	redirectStatus int
}

func newFakeContext(method, path string) *fakeContext {
	return &fakeContext{
		path:    path,
		method:  method,
		cookies: map[string]string{},
		ctx:     context.Background(),
		locals:  map[any]any{},
		headers: map[string]string{},
	}
}

func (f *fakeContext) Next() error {
	f.nextCalled = true
	return nil
}

func (f *fakeContext) Context() context.Context       { return f.ctx }
func (f *fakeContext) SetContext(ctx context.Context) { f.ctx = ctx }
func (f *fakeContext) Path() string                   { return f.path }
func (f *fakeContext) Method() string                 { return f.method }
func (f *fakeContext) Body() []byte                   { return nil }

func (f *fakeContext) Status(int) router.Context { return f }
func (f *fakeContext) SendString(string) error   { return nil }
func (f *fakeContext) Send([]byte) error         { return nil }
func (f *fakeContext) JSON(int, any) error       { return nil }
func (f *fakeContext) NoContent(int) error       { return nil }

func (f *fakeContext) Render(string, any, ...string) error { return nil }

func (f *fakeContext) Redirect(path string, status ...int) error {
	f.redirectedTo = path
	if len(status) > 0 {
		f.redirectStatus = status[0]
	}
	return nil
}

func (f *fakeContext) RedirectToRoute(string, router.ViewContext, ...int) error { return nil }
func (f *fakeContext) RedirectBack(string, ...int) error                        { return nil }

func (f *fakeContext) SetHeader(key, val string) router.Context {
	f.headers[key] = val
	return f
}

func (f *fakeContext) Header(key string) string { return f.headers[key] }

func (f *fakeContext) Get(key string, def any) any       { return def }
func (f *fakeContext) GetBool(key string, def bool) bool { return def }
func (f *fakeContext) GetInt(key string, def int) int    { return def }
func (f *fakeContext) Set(string, any)                   {}

func (f *fakeContext) Bind(any) error         { return nil }
func (f *fakeContext) BindJSON(any) error     { return nil }
func (f *fakeContext) BindXML(any) error      { return nil }
func (f *fakeContext) BindQuery(any) error    { return nil }
func (f *fakeContext) CookieParser(any) error { return nil }

func (f *fakeContext) Cookie(cookie *router.Cookie) {
	f.setCookies = append(f.setCookies, cookie)
}

func (f *fakeContext) Cookies(key string, def ...string) string {
	if val, ok := f.cookies[key]; ok {
		return val
	}
	if len(def) > 0 {
		return def[0]
	}
	return ""
}

func (f *fakeContext) Param(key string, def ...string) string {
	if len(def) > 0 {
		return def[0]
	}
	return ""
}

func (f *fakeContext) ParamsInt(key string, def int) int { return def }

func (f *fakeContext) Query(key string, def string) string { return def }
func (f *fakeContext) QueryInt(key string, def int) int    { return def }
func (f *fakeContext) Queries() map[string]string          { return map[string]string{} }

func (f *fakeContext) GetString(key string, def string) string { return def }

func (f *fakeContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		f.locals[key] = value[0]
		return nil
	}
	return f.locals[key]
}

func (f *fakeContext) OriginalURL() string        { return f.path }
func (f *fakeContext) OnNext(func() error)        {}
func (f *fakeContext) Referer() string            { return "" }
