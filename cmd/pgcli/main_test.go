// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"testing"

	"github.com/westerndigitalcorporation/placement/pkg/testutil"
)

func TestMain(m *testing.M) {
	testutil.TestMain(m)
}
