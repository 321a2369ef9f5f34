// Package upscale drives the external image-upscaling service.
//
// The service is a web tool, not an API: a browser session starts by
// loading the tool page, which embeds a task id and a bearer token in
// inline JavaScript. The client scrapes both, then walks the tool's
// four-step pipeline: upload, transform, package, download. Steps must run
// in order; each one feeds identifiers to the next.
package upscale

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"regexp"

	"go.uber.org/zap"

	"wallgen/logging"
	"wallgen/webclient"
)

const (
	// DefaultPageURL is the tool page that embeds the task id and token.
	DefaultPageURL = "https://www.iloveimg.com/upscale-image"
	// DefaultAPIURL is the tool's backend API root.
	DefaultAPIURL = "https://api3g.iloveimg.com/v1"
)

// scaleFactor is the only multiplier the pipeline uses.
const scaleFactor = "4"

// packagedFilename names the result archive on the service side.
const packagedFilename = "iloveimg-upscaled"

// toolName identifies the upscale tool to the shared processing endpoint.
const toolName = "upscaleimage"

var (
	taskIDPattern = regexp.MustCompile(`ilovepdfConfig\.taskId = '([\w\d]*)'`)
	tokenPattern  = regexp.MustCompile(`"token":"([\w\d._-]*)"`)
)

// stage tracks pipeline progress so out-of-order calls fail before any
// network traffic.
type stage int

const (
	stageNew stage = iota
	stageInitialized
	stageUploaded
	stageTransformed
	stagePackaged
)

func (s stage) String() string {
	switch s {
	case stageNew:
		return "NEW"
	case stageInitialized:
		return "INITIALIZED"
	case stageUploaded:
		return "UPLOADED"
	case stageTransformed:
		return "TRANSFORMED"
	case stagePackaged:
		return "PACKAGED"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Options configure a Client. Zero values select the production service.
type Options struct {
	PageURL string
	APIURL  string
	Logger  *logging.Logger
}

// Client is a single-use upscale pipeline. Create one per image.
type Client struct {
	http    *webclient.Client
	pageURL string
	apiURL  string
	logger  *logging.Logger

	stage          stage
	task           string
	serverFilename string
	filename       string
}

// NewClient creates a Client on top of the given cookie-jar HTTP client.
func NewClient(httpClient *webclient.Client, opts Options) *Client {
	pageURL := opts.PageURL
	if pageURL == "" {
		pageURL = DefaultPageURL
	}
	apiURL := opts.APIURL
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &Client{
		http:    httpClient,
		pageURL: pageURL,
		apiURL:  apiURL,
		logger:  opts.Logger,
		stage:   stageNew,
	}
}

// Task returns the scraped task id, available after Init.
func (c *Client) Task() string {
	return c.task
}

func (c *Client) requireStage(operation string, want stage) error {
	if c.stage != want {
		return &PreconditionError{Operation: operation, Want: want.String(), Got: c.stage.String()}
	}
	return nil
}

// Init loads the tool page and scrapes the task id and bearer token out of
// its inline configuration. The token becomes the default Authorization
// header for the rest of the pipeline. Either pattern failing to match
// means the service changed its page markup and nothing downstream can
// work, so Init fails immediately rather than carrying empty credentials
// forward.
func (c *Client) Init(ctx context.Context) error {
	if err := c.requireStage("init", stageNew); err != nil {
		return err
	}

	resp, err := c.http.Do(ctx, &webclient.Request{URL: c.pageURL, ThrowOnFail: true})
	if err != nil {
		return fmt.Errorf("upscale: failed to load tool page: %w", err)
	}
	html := string(resp.Body)

	taskMatch := taskIDPattern.FindStringSubmatch(html)
	if taskMatch == nil || taskMatch[1] == "" {
		return &InitParseError{What: "task id"}
	}
	tokenMatch := tokenPattern.FindStringSubmatch(html)
	if tokenMatch == nil || tokenMatch[1] == "" {
		return &InitParseError{What: "bearer token"}
	}

	c.task = taskMatch[1]
	c.http.SetDefaultHeader("Authorization", "Bearer "+tokenMatch[1])
	c.stage = stageInitialized

	if c.logger != nil {
		c.logger.Debug("upscale task initialized", zap.String("task", c.task))
	}
	return nil
}

// Upload posts the image as multipart form data and records the name the
// server assigned to it.
func (c *Client) Upload(ctx context.Context, data []byte, filename string) error {
	if err := c.requireStage("upload", stageInitialized); err != nil {
		return err
	}

	var raw bytes.Buffer
	form := multipart.NewWriter(&raw)

	fileHeader := make(textproto.MIMEHeader)
	fileHeader.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	fileHeader.Set("Content-Type", contentTypeFor(filename))
	filePart, err := form.CreatePart(fileHeader)
	if err != nil {
		return fmt.Errorf("upscale: failed to build upload form: %w", err)
	}
	if _, err := filePart.Write(data); err != nil {
		return fmt.Errorf("upscale: failed to build upload form: %w", err)
	}
	_ = form.WriteField("name", filename)
	_ = form.WriteField("task", c.task)
	if err := form.Close(); err != nil {
		return fmt.Errorf("upscale: failed to finalize upload form: %w", err)
	}

	resp, err := c.postForm(ctx, c.apiURL+"/upload", form.FormDataContentType(), raw.Bytes())
	if err != nil {
		return fmt.Errorf("upscale: upload failed: %w", err)
	}

	var parsed struct {
		ServerFilename string `json:"server_filename"`
	}
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return fmt.Errorf("upscale: failed to decode upload response: %w", err)
	}
	if parsed.ServerFilename == "" {
		return fmt.Errorf("upscale: upload returned no server filename")
	}

	c.serverFilename = parsed.ServerFilename
	c.filename = filename
	c.stage = stageUploaded
	return nil
}

// Upscale triggers the 4x transform on the uploaded image. The service
// answers this call unreliably, so failures are logged and swallowed;
// Process fails loudly if the transform never actually completed.
func (c *Client) Upscale(ctx context.Context) error {
	if err := c.requireStage("upscale", stageUploaded); err != nil {
		return err
	}

	fields := [][2]string{
		{"task", c.task},
		{"server_filename", c.serverFilename},
		{"scale", scaleFactor},
	}
	if err := c.postFields(ctx, c.apiURL+"/upscale", fields); err != nil {
		if c.logger != nil {
			c.logger.Warn("upscale transform call failed, continuing", zap.Error(err))
		}
	}

	c.stage = stageTransformed
	return nil
}

// Process packages the transform result for download.
func (c *Client) Process(ctx context.Context) error {
	if err := c.requireStage("process", stageTransformed); err != nil {
		return err
	}

	fields := [][2]string{
		{"packaged_filename", packagedFilename},
		{"multiplier", scaleFactor},
		{"task", c.task},
		{"tool", toolName},
		{"files[0][server_filename]", c.serverFilename},
		{"files[0][filename]", c.filename},
	}
	if err := c.postFields(ctx, c.apiURL+"/process", fields); err != nil {
		return fmt.Errorf("upscale: process failed: %w", err)
	}

	c.stage = stagePackaged
	return nil
}

// Download fetches the upscaled image bytes.
func (c *Client) Download(ctx context.Context) ([]byte, error) {
	if err := c.requireStage("download", stagePackaged); err != nil {
		return nil, err
	}

	resp, err := c.http.Do(ctx, &webclient.Request{
		URL:         c.apiURL + "/download/" + c.task,
		ThrowOnFail: true,
	})
	if err != nil {
		return nil, fmt.Errorf("upscale: download failed: %w", err)
	}
	return resp.Body, nil
}

// postFields posts a multipart form of plain text fields.
func (c *Client) postFields(ctx context.Context, url string, fields [][2]string) error {
	var raw bytes.Buffer
	form := multipart.NewWriter(&raw)
	for _, field := range fields {
		if err := form.WriteField(field[0], field[1]); err != nil {
			return fmt.Errorf("building form: %w", err)
		}
	}
	if err := form.Close(); err != nil {
		return fmt.Errorf("finalizing form: %w", err)
	}

	_, err := c.postForm(ctx, url, form.FormDataContentType(), raw.Bytes())
	return err
}

func (c *Client) postForm(ctx context.Context, url, contentType string, body []byte) (*webclient.Response, error) {
	header := http.Header{}
	header.Set("Content-Type", contentType)
	return c.http.Do(ctx, &webclient.Request{
		Method:      http.MethodPost,
		URL:         url,
		Header:      header,
		Body:        body,
		ThrowOnFail: true,
	})
}

func contentTypeFor(filename string) string {
	if ct := mime.TypeByExtension(filepath.Ext(filename)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
