// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Webcore server.

package main

import (
	"github.com/hexinfra/webcore/apps"
	"github.com/hexinfra/webcore/hemi/procman"
)

func main() {
	procman.Main(&procman.Opts{
		ProgramName:  "webcore",
		ProgramTitle: "Webcore",
		Setup:        apps.Mount,
	})
}
