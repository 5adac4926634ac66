// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// This is a hello app showing how to register handles on a server's router.

package hello

import (
	"strconv"
	"strings"
	"time"

	. "github.com/hexinfra/webcore/hemi"
)

// Mount registers the routes of hello.
func Mount(r *Router) {
	r.Pre("", "/**", stamp)

	r.GET("/", index)
	r.GET("/hello/:name", greet)
	r.GET("/hello/:name/:times", greetTimes)
	r.POST("/echo", echo)
	r.GET("/headers", headers)
	r.GET("/bye", bye)

	r.Post("", "/**", trace)
}

func stamp(ctx *Context) Value {
	ctx.SetHeader("X-Hello", "1")
	return NotHandled() // continue to main handles
}

func index(ctx *Context) Value {
	return Text("hello, world!")
}

func greet(ctx *Context) Value {
	return Text("hello, " + ctx.Param("name") + "!")
}

func greetTimes(ctx *Context) Value {
	times, err := strconv.Atoi(ctx.Param("times"))
	if err != nil || times < 0 || times > 100 {
		return Error(StatusBadRequest, "bad times")
	}
	return Text(strings.Repeat("hello, "+ctx.Param("name")+"!\n", times))
}

func echo(ctx *Context) Value {
	if ctx.ContentLength() == 0 {
		return Error(StatusBadRequest, "nothing to echo")
	}
	if contentType, _ := ctx.Header("Content-Type"); contentType != "" {
		ctx.SetHeader("Content-Type", contentType)
	}
	return Bytes(ctx.Body())
}

func headers(ctx *Context) Value {
	all := make(map[string][]string)
	ctx.ForHeaders(func(name string, value string) bool {
		all[name] = append(all[name], value)
		return true
	})
	return JSON(map[string]any{
		"method":  ctx.Method(),
		"path":    ctx.Path(),
		"query":   ctx.Query(),
		"headers": all,
	})
}

func bye(ctx *Context) Value {
	ctx.SetClose()
	return Text("bye!")
}

func trace(ctx *Context) Value {
	logger := ctx.Logger()
	logger.Debug().Str("path", ctx.Path()).Int("status", ctx.Status()).Time("at", time.Now()).Msg("hello traced")
	return NotHandled()
}
