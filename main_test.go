package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildVersion(t *testing.T) {
	orig := version
	t.Cleanup(func() { version = orig })

	version = "v1.2.3"
	assert.Equal(t, "v1.2.3", buildVersion())

	version = "dev"
	assert.NotEmpty(t, buildVersion())
}
