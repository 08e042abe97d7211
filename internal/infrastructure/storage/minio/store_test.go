package minio

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestObjectKey(t *testing.T) {
	id := uuid.MustParse("6f1f64f6-69c3-4f0a-8e6b-0e8f1f64f669")
	key := ObjectKey(id, "/data/processes/run1/resultado.json")
	assert.Equal(t, "processes/6f1f64f6-69c3-4f0a-8e6b-0e8f1f64f669/resultado.json", key)
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "application/json", contentTypeFor("resultado.json"))
	assert.Equal(t, "text/csv", contentTypeFor("resultado.csv"))
	assert.Equal(t, "application/zip", contentTypeFor("run1.ZIP"))
	assert.Equal(t, "application/octet-stream", contentTypeFor("grid_1.glg"))
}
