package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"comet/internal/apperr"
)

var (
	pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	gifHeader = []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00")
)

func TestDetectImage(t *testing.T) {
	if mt, err := DetectImage(pngHeader, AnyImage); err != nil || mt != "image/png" {
		t.Errorf("png: got %q, %v", mt, err)
	}
	if mt, err := DetectImage(gifHeader, AnyImage); err != nil || mt != "image/gif" {
		t.Errorf("gif: got %q, %v", mt, err)
	}

	_, err := DetectImage(gifHeader, PNGOrJPEGOnly)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("gif with png/jpeg only: err = %v", err)
	}
	if err.Error() != "Image must be PNG, JPEG" {
		t.Errorf("message = %q", err.Error())
	}

	if _, err := DetectImage([]byte("just some text"), AnyImage); err == nil {
		t.Error("text accepted as image")
	}
	if _, err := DetectImage(nil, AnyImage); err == nil {
		t.Error("empty file accepted")
	}

	big := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, MaxImageSize)...)
	if _, err := DetectImage(big, AnyImage); err == nil {
		t.Error("oversized file accepted")
	}
}

func TestImgurStoreUpload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Client-ID test-client" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
			return
		}
		raw, err := base64.StdEncoding.DecodeString(r.FormValue("image"))
		if err != nil || !bytes.Equal(raw, pngHeader) {
			t.Errorf("image field does not round trip")
		}
		var resp ImgurResponse
		resp.Success = true
		resp.Status = 200
		resp.Data.Link = "https://i.imgur.com/abc.png"
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	store := NewImgurStore("test-client")
	store.endpoint = server.URL
	link, err := store.Upload(context.Background(), pngHeader, "a.png")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if link != "https://i.imgur.com/abc.png" {
		t.Errorf("link = %q", link)
	}
}

func TestImgurStoreFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"success":false,"status":400,"data":{}}`))
	}))
	defer server.Close()

	store := NewImgurStore("test-client")
	store.endpoint = server.URL
	if _, err := store.Upload(context.Background(), pngHeader, ""); err == nil {
		t.Error("expected error")
	}

	if _, err := NewImgurStore("").Upload(context.Background(), pngHeader, ""); err == nil {
		t.Error("expected error without a client id")
	}
}
