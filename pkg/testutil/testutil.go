// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT
//
// This contains a few functions to help writing tests. If you want to put
// something in a temporary directory, put it in testutil.TempDir(), or a
// directory within it. Also, put this in a file named main_test.go in your
// package, and temp directories will be cleaned up on successful runs:
/*

package mypkg

import (
	"testing"

	"github.com/westerndigitalcorporation/placement/pkg/testutil"
)

func TestMain(m *testing.M) {
	testutil.TestMain(m)
}

*/

package testutil

import (
	"flag"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	log "github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

var tempDir string

// TempDir gets a temp directory that's exclusive to this process. Use
// ioutil.TempDir on the result to get a directory exclusive to one test.
func TempDir() string {
	if tempDir == "" {
		var err error
		tempDir, err = ioutil.TempDir("", filepath.Base(os.Args[0]))
		if err != nil {
			log.Fatalf("Couldn't create temp dir: %s", err)
		}
	}
	return tempDir
}

// TestMain should be called from your package TestMain to ensure that the
// process temp directory is cleaned up on successful runs.
func TestMain(m *testing.M) {
	flag.Parse()
	ret := m.Run()
	if ret == 0 && tempDir != "" {
		os.RemoveAll(tempDir)
	}
	os.Exit(ret)
}

// ExpectPanic fails the test if 'f' returns without panicking.
func ExpectPanic(t *testing.T, what string, f func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s: expected a panic", what)
		}
	}()
	f()
}

// CounterValue returns the current value of a prometheus counter.
func CounterValue(c prometheus.Counter) float64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		panic(err)
	}
	return m.GetCounter().GetValue()
}
