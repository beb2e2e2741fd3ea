// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/olegiv/resourcehub/internal/service"
	"github.com/olegiv/resourcehub/internal/storage"
)

// MaxUploadBody bounds a whole upload request: the file limit plus room
// for the other form fields and multipart framing.
const MaxUploadBody = storage.MaxFileSize + 1<<20

const multipartMemory = 1 << 20

// ReadUpload parses a multipart upload with fields title, description,
// subject and file. A missing file yields an input with a nil File so the
// service reports it alongside the other fields. The returned cleanup must
// be called once the input is no longer needed.
func ReadUpload(w http.ResponseWriter, r *http.Request) (service.UploadInput, func(), error) {
	noop := func() {}

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBody)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) || strings.Contains(err.Error(), "request body too large") {
			return service.UploadInput{}, noop, storage.ErrTooLarge
		}
		return service.UploadInput{}, noop, fmt.Errorf("%w: malformed multipart form", service.ErrValidation)
	}

	in := service.UploadInput{
		Title:       r.PostFormValue("title"),
		Description: r.PostFormValue("description"),
		Subject:     r.PostFormValue("subject"),
	}
	cleanup := func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return in, cleanup, nil
		}
		cleanup()
		return service.UploadInput{}, noop, fmt.Errorf("%w: unreadable file part", service.ErrValidation)
	}

	in.File = &storage.File{
		Reader:      file,
		Name:        header.Filename,
		ContentType: mediaType(header),
		Size:        header.Size,
	}
	return in, func() {
		_ = file.Close()
		cleanup()
	}, nil
}

// mediaType returns the declared media type without parameters.
func mediaType(header *multipart.FileHeader) string {
	declared := header.Header.Get("Content-Type")
	mt, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return strings.TrimSpace(declared)
	}
	return mt
}
