package upscale

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"wallgen/webclient"
)

const toolPage = `<html><script>
ilovepdfConfig.taskId = 'task123abc';
var cfg = {"token":"eyJ0b2tlbg.payload.sig"};
</script></html>`

// fakeService mimics the upscale tool's page and API endpoints.
type fakeService struct {
	*httptest.Server

	networkHits    atomic.Int64
	gotAuth        string
	uploadedName   string
	uploadedTask   string
	upscaleStatus  int
	processFields  map[string]string
	downloadedTask string
}

func newFakeService(t *testing.T) *fakeService {
	t.Helper()
	fs := &fakeService{upscaleStatus: http.StatusOK}

	mux := http.NewServeMux()
	mux.HandleFunc("/upscale-image", func(w http.ResponseWriter, r *http.Request) {
		fs.networkHits.Add(1)
		_, _ = w.Write([]byte(toolPage))
	})
	mux.HandleFunc("/v1/upload", func(w http.ResponseWriter, r *http.Request) {
		fs.networkHits.Add(1)
		fs.gotAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(16 << 20); err != nil {
			t.Errorf("parsing upload form: %v", err)
		}
		fs.uploadedName = r.FormValue("name")
		fs.uploadedTask = r.FormValue("task")
		_, _ = w.Write([]byte(`{"server_filename":"srv_0042.jpeg"}`))
	})
	mux.HandleFunc("/v1/upscale", func(w http.ResponseWriter, r *http.Request) {
		fs.networkHits.Add(1)
		w.WriteHeader(fs.upscaleStatus)
	})
	mux.HandleFunc("/v1/process", func(w http.ResponseWriter, r *http.Request) {
		fs.networkHits.Add(1)
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parsing process form: %v", err)
		}
		fs.processFields = map[string]string{}
		for key := range r.MultipartForm.Value {
			fs.processFields[key] = r.FormValue(key)
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/v1/download/", func(w http.ResponseWriter, r *http.Request) {
		fs.networkHits.Add(1)
		fs.downloadedTask = r.URL.Path[len("/v1/download/"):]
		_, _ = w.Write([]byte("upscaled-bytes"))
	})

	fs.Server = httptest.NewServer(mux)
	t.Cleanup(fs.Close)
	return fs
}

func newTestPipeline(t *testing.T, fs *fakeService) *Client {
	t.Helper()
	httpClient, err := webclient.NewClient(webclient.Options{})
	if err != nil {
		t.Fatalf("webclient.NewClient() error = %v", err)
	}
	return NewClient(httpClient, Options{
		PageURL: fs.URL + "/upscale-image",
		APIURL:  fs.URL + "/v1",
	})
}

func TestFullPipeline(t *testing.T) {
	ctx := context.Background()
	fs := newFakeService(t)
	client := newTestPipeline(t, fs)

	if err := client.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if client.Task() != "task123abc" {
		t.Errorf("Task() = %q, want task123abc", client.Task())
	}

	if err := client.Upload(ctx, []byte("image-bytes"), "original.jpeg"); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if fs.gotAuth != "Bearer eyJ0b2tlbg.payload.sig" {
		t.Errorf("upload Authorization = %q, want scraped token", fs.gotAuth)
	}
	if fs.uploadedName != "original.jpeg" || fs.uploadedTask != "task123abc" {
		t.Errorf("upload form: name=%q task=%q", fs.uploadedName, fs.uploadedTask)
	}

	if err := client.Upscale(ctx); err != nil {
		t.Fatalf("Upscale() error = %v", err)
	}
	if err := client.Process(ctx); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if fs.processFields["files[0][server_filename]"] != "srv_0042.jpeg" {
		t.Errorf("process server_filename = %q, want srv_0042.jpeg", fs.processFields["files[0][server_filename]"])
	}
	if fs.processFields["files[0][filename]"] != "original.jpeg" {
		t.Errorf("process filename = %q, want original.jpeg", fs.processFields["files[0][filename]"])
	}
	if fs.processFields["tool"] != "upscaleimage" {
		t.Errorf("process tool = %q, want upscaleimage", fs.processFields["tool"])
	}

	data, err := client.Download(ctx)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if string(data) != "upscaled-bytes" {
		t.Errorf("Download() = %q, want upscaled-bytes", data)
	}
	if fs.downloadedTask != "task123abc" {
		t.Errorf("download task = %q, want task123abc", fs.downloadedTask)
	}
}

func TestInitFailsWhenPageUnparseable(t *testing.T) {
	tests := []struct {
		name string
		page string
		want string
	}{
		{"no task id", `<html>{"token":"abc_def-123.x"}</html>`, "task id"},
		{"no token", `<html>ilovepdfConfig.taskId = 'task123';</html>`, "bearer token"},
		{"empty page", `<html></html>`, "task id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.page))
			}))
			defer server.Close()

			httpClient, err := webclient.NewClient(webclient.Options{})
			if err != nil {
				t.Fatalf("webclient.NewClient() error = %v", err)
			}
			client := NewClient(httpClient, Options{PageURL: server.URL, APIURL: server.URL})

			err = client.Init(context.Background())
			var parseErr *InitParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("error = %v, want InitParseError", err)
			}
			if parseErr.What != tt.want {
				t.Errorf("What = %q, want %q", parseErr.What, tt.want)
			}
		})
	}
}

func TestStepsOutOfOrderFailWithoutNetworkCall(t *testing.T) {
	ctx := context.Background()
	fs := newFakeService(t)
	client := newTestPipeline(t, fs)

	var precondErr *PreconditionError

	if err := client.Upscale(ctx); !errors.As(err, &precondErr) {
		t.Errorf("Upscale before Upload: error = %v, want PreconditionError", err)
	}
	if err := client.Upload(ctx, []byte("x"), "a.jpeg"); !errors.As(err, &precondErr) {
		t.Errorf("Upload before Init: error = %v, want PreconditionError", err)
	}
	if err := client.Process(ctx); !errors.As(err, &precondErr) {
		t.Errorf("Process before Upscale: error = %v, want PreconditionError", err)
	}
	if _, err := client.Download(ctx); !errors.As(err, &precondErr) {
		t.Errorf("Download before Process: error = %v, want PreconditionError", err)
	}

	if hits := fs.networkHits.Load(); hits != 0 {
		t.Errorf("service hit %d times, want 0", hits)
	}
}

func TestUpscaleFailureIsTolerated(t *testing.T) {
	ctx := context.Background()
	fs := newFakeService(t)
	fs.upscaleStatus = http.StatusInternalServerError
	client := newTestPipeline(t, fs)

	if err := client.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := client.Upload(ctx, []byte("image-bytes"), "original.jpeg"); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if err := client.Upscale(ctx); err != nil {
		t.Errorf("Upscale() error = %v, want tolerated failure", err)
	}

	// The pipeline stays usable; Process is where a dead transform
	// surfaces.
	if err := client.Process(ctx); err != nil {
		t.Errorf("Process() after tolerated failure: error = %v", err)
	}
}
