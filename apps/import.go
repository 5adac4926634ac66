// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Import your apps.

package apps

import (
	"github.com/hexinfra/webcore/apps/examples/hello"
	"github.com/hexinfra/webcore/hemi"
)

// Mount registers the routes of all apps.
func Mount(router *hemi.Router) {
	hello.Mount(router)
}
