package bookstore

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestProcessCoverResizesWideImages(t *testing.T) {
	cover, data, err := processCover(bytes.NewReader(testPNG(t, 1600, 2400)), "0134190440")
	if err != nil {
		t.Fatalf("processCover: %v", err)
	}
	if cover.Filename != "0134190440.jpg" || cover.Width != 800 || cover.Height != 1200 {
		t.Fatalf("cover = %+v", cover)
	}
	if cover.Size != len(data) {
		t.Fatalf("size %d, data %d", cover.Size, len(data))
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode jpeg: %v", err)
	}
	if cfg.Width != 800 || cfg.Height != 1200 {
		t.Fatalf("jpeg %dx%d", cfg.Width, cfg.Height)
	}
}

func TestProcessCoverKeepsSmallImages(t *testing.T) {
	cover, _, err := processCover(bytes.NewReader(testPNG(t, 300, 450)), "x")
	if err != nil {
		t.Fatalf("processCover: %v", err)
	}
	if cover.Width != 300 || cover.Height != 450 {
		t.Fatalf("cover = %+v", cover)
	}
}

func TestProcessCoverRejectsGarbage(t *testing.T) {
	if _, _, err := processCover(strings.NewReader("not an image"), "x"); err == nil {
		t.Fatal("expected decode error")
	}
}

func uploadCover(t *testing.T, url string, img []byte) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image", "cover.png")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	fw.Write(img)
	mw.Close()

	req, _ := http.NewRequestWithContext(context.Background(), http.MethodPut, url, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	return resp
}

func TestCoverUpload(t *testing.T) {
	a, srv := newTestApp(t)
	addBook(t, a, "0134190440", "The Go Programming Language")

	resp := uploadCover(t, srv.URL+"/api/books/0134190440/cover", testPNG(t, 1000, 1500))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/covers/0134190440.jpg" {
		t.Fatalf("Location = %q", loc)
	}
	var cover Cover
	if err := json.NewDecoder(resp.Body).Decode(&cover); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cover.Width != 800 {
		t.Fatalf("cover = %+v", cover)
	}
	if _, err := os.Stat(filepath.Join(a.Config.CoversDir, cover.Filename)); err != nil {
		t.Fatalf("cover not written: %v", err)
	}

	got, err := http.Get(srv.URL + "/covers/0134190440.jpg")
	if err != nil {
		t.Fatalf("get cover: %v", err)
	}
	got.Body.Close()
	if got.StatusCode != http.StatusOK {
		t.Fatalf("served cover status = %d", got.StatusCode)
	}
}

func TestCoverUploadUnknownBook(t *testing.T) {
	_, srv := newTestApp(t)

	resp := uploadCover(t, srv.URL+"/api/books/0134190440/cover", testPNG(t, 10, 10))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}
