// Copyright 2023 Gustavo C. Viegas. All rights reserved.

//go:build linux || windows

package ctxt

import (
	_ "github.com/gviegas/vkframe/driver/vk"
)

// DefaultDriver is the name of the preferred driver.
const DefaultDriver = "vulkan"
