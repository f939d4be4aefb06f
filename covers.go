package bookstore

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/labstack/echo/v4"
	"golang.org/x/image/draw"

	"github.com/eringen/bookstore/api"
	"github.com/eringen/bookstore/model"
)

const (
	maxCoverWidth = 800
	jpegQuality   = 80
	maxUploadSize = 10 << 20 // 10MB
)

// Cover describes a stored cover image.
type Cover struct {
	Filename string `json:"filename"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Size     int    `json:"size"`
}

// processCover decodes an image from src, resizes it to maxCoverWidth if
// wider, and encodes it as JPEG.
func processCover(src io.Reader, isbn string) (Cover, []byte, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return Cover{}, nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if w > maxCoverWidth {
		newH := h * maxCoverWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxCoverWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
		w = maxCoverWidth
		h = newH
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return Cover{}, nil, fmt.Errorf("encode jpeg: %w", err)
	}

	return Cover{
		Filename: isbn + ".jpg",
		Width:    w,
		Height:   h,
		Size:     buf.Len(),
	}, buf.Bytes(), nil
}

func (a *App) handleCoverUpload(c echo.Context) error {
	isbn := c.Param("isbn")
	found, err := a.Model.FindBooks(c.Request().Context(), model.Values{"isbn": isbn})
	if err != nil {
		return api.WriteError(c, err)
	}
	if len(found) == 0 {
		return api.WriteError(c, model.Errors{{Code: model.CodeBadID, Message: "no book for isbn " + isbn, Name: "isbn"}})
	}

	file, err := c.FormFile("image")
	if err != nil {
		return api.WriteError(c, model.Errors{{Code: model.CodeMissingField, Message: "The field image must be specified.", Name: "image"}})
	}
	if file.Size > maxUploadSize {
		return api.WriteError(c, model.Errors{{Code: model.CodeBadFieldValue, Message: "image too large (max 10MB)", Name: "image"}})
	}

	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	cover, data, err := processCover(src, isbn)
	if err != nil {
		return api.WriteError(c, model.Errors{{Code: model.CodeBadFieldValue, Message: "invalid image: " + err.Error(), Name: "image"}})
	}

	if err := os.MkdirAll(a.Config.CoversDir, 0o755); err != nil {
		return fmt.Errorf("create covers dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(a.Config.CoversDir, cover.Filename), data, 0o644); err != nil {
		return fmt.Errorf("write cover: %w", err)
	}

	c.Response().Header().Set(echo.HeaderLocation, "/covers/"+cover.Filename)
	return c.JSON(http.StatusCreated, cover)
}
