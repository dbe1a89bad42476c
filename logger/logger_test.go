// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package logger_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/molecula/graphity/logger"
)

func TestStandardLoggerVerbosity(t *testing.T) {
	var buf bytes.Buffer
	l := logger.NewStandardLogger(&buf)
	l.Debugf("hidden %d", 1)
	l.Infof("shown %d", 2)
	l.WithPrefix("[sparql] ").Warnf("careful")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug message written by standard logger: %q", out)
	}
	if !strings.Contains(out, "INFO:  shown 2") {
		t.Fatalf("missing info line: %q", out)
	}
	if !strings.Contains(out, "[sparql] WARN:  careful") {
		t.Fatalf("missing prefixed warning: %q", out)
	}

	buf.Reset()
	logger.NewVerboseLogger(&buf).Debugf("visible")
	if !strings.Contains(buf.String(), "DEBUG: visible") {
		t.Fatalf("verbose logger dropped debug: %q", buf.String())
	}
}

func TestBufferLogger(t *testing.T) {
	l := logger.NewBufferLogger()
	l.Errorf("boom: %s", "remote")
	l.Debugf("ignored")
	b, err := l.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if got := string(b); got != "ERROR: boom: remote\n" {
		t.Fatalf("unexpected buffer contents %q", got)
	}
}
