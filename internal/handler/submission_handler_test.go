package handler

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildMultipart(t *testing.T, files map[string][]string, fields map[string]string) *multipart.Form {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for field, value := range fields {
		require.NoError(t, writer.WriteField(field, value))
	}
	for field, names := range files {
		for _, name := range names {
			part, err := writer.CreateFormFile(field, name)
			require.NoError(t, err)
			_, err = part.Write([]byte("payload-" + name))
			require.NoError(t, err)
		}
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/submissions", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(32<<20))
	return req.MultipartForm
}

func TestCollectUploadsGroupsRequirementFields(t *testing.T) {
	form := buildMultipart(t, map[string][]string{
		"requirements[Library Card]": {"card.png", "card-back.png"},
		"requirements[Exam Permit]":  {"permit.pdf"},
	}, nil)

	files, receipt, closeAll, err := collectUploads(form)
	require.NoError(t, err)
	defer closeAll()

	assert.Nil(t, receipt)
	require.Len(t, files, 3)

	byRequirement := map[string]int{}
	for _, f := range files {
		byRequirement[f.Requirement]++
		data, readErr := io.ReadAll(f.Content)
		require.NoError(t, readErr)
		assert.Equal(t, "payload-"+f.Filename, string(data))
	}
	assert.Equal(t, 2, byRequirement["Library Card"])
	assert.Equal(t, 1, byRequirement["Exam Permit"])
}

func TestCollectUploadsPicksReceipt(t *testing.T) {
	form := buildMultipart(t, map[string][]string{
		"receipt": {"gcash.png"},
	}, map[string]string{"gcash_number": "09171234567"})

	files, receipt, closeAll, err := collectUploads(form)
	require.NoError(t, err)
	defer closeAll()

	assert.Empty(t, files)
	require.NotNil(t, receipt)
	assert.Equal(t, "gcash.png", receipt.Filename)
}

func TestCollectUploadsIgnoresUnknownFields(t *testing.T) {
	form := buildMultipart(t, map[string][]string{
		"attachments": {"stray.png"},
	}, nil)

	files, receipt, closeAll, err := collectUploads(form)
	require.NoError(t, err)
	defer closeAll()

	assert.Empty(t, files)
	assert.Nil(t, receipt)
}

func TestSubmissionHandlerCreateRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewSubmissionHandler(nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodPost, "/submissions", nil)
	c.Request = req

	handler.Create(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
