// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Static handle serves requests which no route handled from a file system.

package hemi

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// FileSystem opens files by slash-separated, rooted names like "/css/site.css".
type FileSystem interface {
	Open(name string) (File, error)
}

// File is an opened file of a FileSystem.
type File interface {
	io.Reader
	io.Seeker
	io.Closer
	Stat() (fs.FileInfo, error)
}

// Dir is a FileSystem on a local directory.
type Dir string

func (d Dir) Open(name string) (File, error) {
	file, err := os.Open(filepath.Join(string(d), filepath.FromSlash(path.Clean("/"+name))))
	if err != nil {
		return nil, err
	}
	return file, nil
}

// staticHandle
type staticHandle struct {
	// Assocs
	server *Server
	files  FileSystem
	// States
	indexFile    string
	allowExts    []string
	denyExts     []string
	cacheControl string
	mimeTypes    map[string]string
	defaultType  string
}

func newStaticHandle(server *Server, files FileSystem) *staticHandle {
	config := &server.config.Static
	h := &staticHandle{
		server:       server,
		files:        files,
		indexFile:    config.IndexFile,
		allowExts:    config.AllowExts,
		denyExts:     config.DenyExts,
		cacheControl: config.CacheControl,
		mimeTypes:    staticDefaultMimeTypes,
		defaultType:  config.DefaultType,
	}
	if len(config.MimeTypes) > 0 {
		h.mimeTypes = make(map[string]string, len(staticDefaultMimeTypes)+len(config.MimeTypes))
		for ext, mimeType := range staticDefaultMimeTypes {
			h.mimeTypes[ext] = mimeType
		}
		for ext, mimeType := range config.MimeTypes { // overwrite default
			h.mimeTypes[strings.ToLower(strings.TrimPrefix(ext, "."))] = mimeType
		}
	}
	if h.defaultType == "" {
		h.defaultType = typeOctetStream
	}
	return h
}

// serve returns NotHandled if the file doesn't exist, so the request falls through to 404 whatever its method is.
func (h *staticHandle) serve(ctx *Context) Value {
	name, ok := pctDecode(ctx.path)
	if !ok {
		return Error(StatusBadRequest, "bad path")
	}
	isDir := strings.HasSuffix(name, "/")
	name = path.Clean("/" + name)
	if isDir {
		name = path.Join(name, h.indexFile)
	}
	if !h.allowed(name) {
		return Status(StatusForbidden)
	}

	file, err := h.files.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NotHandled()
		}
		if errors.Is(err, fs.ErrPermission) {
			return Status(StatusForbidden)
		}
		h.server.logger.Error().Int64("conn", ctx.conn.id).Str("file", name).Err(err).Msg("open file failed")
		return Status(StatusInternalServerError)
	}
	if ctx.method != MethodGET && ctx.method != MethodHEAD { // files are read-only
		file.Close()
		ctx.SetHeader(headerAllow, "GET, HEAD")
		return Status(StatusMethodNotAllowed)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		h.server.logger.Error().Int64("conn", ctx.conn.id).Str("file", name).Err(err).Msg("stat file failed")
		return Status(StatusInternalServerError)
	}
	if info.IsDir() {
		file.Close()
		if isDir { // the index file is a directory
			return NotHandled()
		}
		location := ctx.path + "/"
		if ctx.query != "" {
			location += "?" + ctx.query
		}
		ctx.SetHeader(headerLocation, location)
		return Status(StatusMovedPermanently)
	}

	size := info.Size()
	modTime := info.ModTime().UTC().Truncate(time.Second) // http dates have no sub-second part
	lastModified := modTime.Format(httpTimeFormat)
	if since, ok := ctx.header(headerIfModifiedSince); ok {
		if date, err := time.Parse(httpTimeFormat, since); err == nil && !modTime.After(date) {
			file.Close()
			ctx.SetHeader(headerLastModified, lastModified)
			return Status(StatusNotModified)
		}
	}

	ctx.SetHeader(headerContentType, h.mimeType(name))
	ctx.SetHeader(headerAcceptRanges, "bytes")
	ctx.SetHeader(headerLastModified, lastModified)
	if h.cacheControl != "" {
		ctx.SetHeader(headerCacheControl, h.cacheControl)
	}
	if spec, ok := ctx.header(headerRange); ok && ctx.method == MethodGET { // range handling is only defined for GET
		switch rang, result := parseRange(spec, size); result {
		case rangeUnsatisfiable:
			file.Close()
			ctx.DelHeader(headerContentType)
			ctx.SetHeader(headerContentRange, unsatisfiedRange(size))
			return Status(StatusRangeNotSatisfiable)
		case rangeSatisfiable:
			if _, err := file.Seek(rang.from, io.SeekStart); err != nil {
				file.Close()
				return Status(StatusInternalServerError)
			}
			ctx.SetHeader(headerContentRange, rang.contentRange(size))
			value := stream(file, file, rang.size())
			value.status = StatusPartialContent
			return value
		}
	}
	return stream(file, file, size)
}

func (h *staticHandle) allowed(name string) bool {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	if slices.Contains(h.denyExts, ext) {
		return false
	}
	return len(h.allowExts) == 0 || slices.Contains(h.allowExts, ext)
}

func (h *staticHandle) mimeType(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	if mimeType, ok := h.mimeTypes[ext]; ok {
		return mimeType
	}
	return h.defaultType
}

var staticDefaultMimeTypes = map[string]string{
	"7z":   "application/x-7z-compressed",
	"atom": "application/atom+xml",
	"bin":  "application/octet-stream",
	"bmp":  "image/x-ms-bmp",
	"css":  "text/css",
	"csv":  "text/csv",
	"doc":  "application/msword",
	"gif":  "image/gif",
	"htm":  "text/html",
	"html": "text/html",
	"ico":  "image/x-icon",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"js":   "application/javascript",
	"json": "application/json",
	"m4a":  "audio/x-m4a",
	"md":   "text/markdown",
	"mov":  "video/quicktime",
	"mp3":  "audio/mpeg",
	"mp4":  "video/mp4",
	"mpeg": "video/mpeg",
	"pdf":  "application/pdf",
	"png":  "image/png",
	"rss":  "application/rss+xml",
	"svg":  "image/svg+xml",
	"tar":  "application/x-tar",
	"txt":  "text/plain",
	"wasm": "application/wasm",
	"webm": "video/webm",
	"webp": "image/webp",
	"woff": "font/woff",
	"xml":  "text/xml",
	"yaml": "application/yaml",
	"zip":  "application/zip",
}
