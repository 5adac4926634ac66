// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// HTTP/1.x protocol elements.

package hemi

import (
	"strconv"
)

const ( // versions
	Version1_0 = "HTTP/1.0"
	Version1_1 = "HTTP/1.1"
)

const ( // methods
	MethodGET     = "GET"
	MethodHEAD    = "HEAD"
	MethodPOST    = "POST"
	MethodPUT     = "PUT"
	MethodDELETE  = "DELETE"
	MethodOPTIONS = "OPTIONS"
	MethodPATCH   = "PATCH"
)

const ( // status codes
	// 2XX
	StatusOK             = 200
	StatusCreated        = 201
	StatusAccepted       = 202
	StatusNoContent      = 204
	StatusPartialContent = 206
	// 3XX
	StatusMovedPermanently  = 301
	StatusFound             = 302
	StatusNotModified       = 304
	StatusTemporaryRedirect = 307
	// 4XX
	StatusBadRequest                  = 400
	StatusUnauthorized                = 401
	StatusForbidden                   = 403
	StatusNotFound                    = 404
	StatusMethodNotAllowed            = 405
	StatusRequestTimeout              = 408
	StatusConflict                    = 409
	StatusLengthRequired              = 411
	StatusPreconditionFailed          = 412
	StatusContentTooLarge             = 413
	StatusURITooLong                  = 414
	StatusUnsupportedMediaType        = 415
	StatusRangeNotSatisfiable         = 416
	StatusTooManyRequests             = 429
	StatusRequestHeaderFieldsTooLarge = 431
	// 5XX
	StatusInternalServerError     = 500
	StatusNotImplemented          = 501
	StatusBadGateway              = 502
	StatusServiceUnavailable      = 503
	StatusGatewayTimeout          = 504
	StatusHTTPVersionNotSupported = 505
)

var statusTexts = map[int]string{
	StatusOK:                          "OK",
	StatusCreated:                     "Created",
	StatusAccepted:                    "Accepted",
	StatusNoContent:                   "No Content",
	StatusPartialContent:              "Partial Content",
	StatusMovedPermanently:            "Moved Permanently",
	StatusFound:                       "Found",
	StatusNotModified:                 "Not Modified",
	StatusTemporaryRedirect:           "Temporary Redirect",
	StatusBadRequest:                  "Bad Request",
	StatusUnauthorized:                "Unauthorized",
	StatusForbidden:                   "Forbidden",
	StatusNotFound:                    "Not Found",
	StatusMethodNotAllowed:            "Method Not Allowed",
	StatusRequestTimeout:              "Request Timeout",
	StatusConflict:                    "Conflict",
	StatusLengthRequired:              "Length Required",
	StatusPreconditionFailed:          "Precondition Failed",
	StatusContentTooLarge:             "Content Too Large",
	StatusURITooLong:                  "URI Too Long",
	StatusUnsupportedMediaType:        "Unsupported Media Type",
	StatusRangeNotSatisfiable:         "Range Not Satisfiable",
	StatusTooManyRequests:             "Too Many Requests",
	StatusRequestHeaderFieldsTooLarge: "Request Header Fields Too Large",
	StatusInternalServerError:         "Internal Server Error",
	StatusNotImplemented:              "Not Implemented",
	StatusBadGateway:                  "Bad Gateway",
	StatusServiceUnavailable:          "Service Unavailable",
	StatusGatewayTimeout:              "Gateway Timeout",
	StatusHTTPVersionNotSupported:     "HTTP Version Not Supported",
}

// StatusText returns the reason phrase of status, or "Status" if it's unknown.
func StatusText(status int) string {
	if text, ok := statusTexts[status]; ok {
		return text
	}
	return "Status"
}

// statusForbidsContent reports whether a response with this status never carries content.
func statusForbidsContent(status int) bool {
	return status < StatusOK || status == StatusNoContent || status == StatusNotModified
}

var http1Controls = func() map[int][]byte { // "HTTP/1.1 xxx Reason\r\n" of known statuses
	controls := make(map[int][]byte, len(statusTexts))
	for status, text := range statusTexts {
		controls[status] = []byte(Version1_1 + " " + strconv.Itoa(status) + " " + text + "\r\n")
	}
	return controls
}()

func http1Control(status int) []byte {
	if control, ok := http1Controls[status]; ok {
		return control
	}
	return []byte(Version1_1 + " " + strconv.Itoa(status) + " " + StatusText(status) + "\r\n")
}

const ( // header names used by the pipeline. lookups are case-insensitive
	headerAcceptRanges     = "Accept-Ranges"
	headerAllow            = "Allow"
	headerCacheControl     = "Cache-Control"
	headerConnection       = "Connection"
	headerContentLength    = "Content-Length"
	headerContentRange     = "Content-Range"
	headerContentType      = "Content-Type"
	headerDate             = "Date"
	headerIfModifiedSince  = "If-Modified-Since"
	headerLastModified     = "Last-Modified"
	headerLocation         = "Location"
	headerRange            = "Range"
	headerServer           = "Server"
	headerTransferEncoding = "Transfer-Encoding"
	headerCORSAllowOrigin  = "Access-Control-Allow-Origin"
	headerCORSAllowMethods = "Access-Control-Allow-Methods"
	headerCORSAllowHeaders = "Access-Control-Allow-Headers"
)

const ( // content types
	typeTextUTF8    = "text/plain; charset=utf-8"
	typeHTMLUTF8    = "text/html; charset=utf-8"
	typeJSON        = "application/json"
	typeOctetStream = "application/octet-stream"
)

const httpTimeFormat = "Mon, 02 Jan 2006 15:04:05 GMT" // IMF-fixdate

var (
	bytesCRLF       = []byte("\r\n")
	bytesColonSpace = []byte(": ")
)
