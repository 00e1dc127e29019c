package artifact

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeArtifactBareBase64(t *testing.T) {
	d, err := DecodeArtifact("eyJmb28iOiJiYXIifQ==")
	require.NoError(t, err)
	assert.Empty(t, d.MIMEType)
	assert.Equal(t, `{"foo":"bar"}`, string(d.Data))
	assert.Equal(t, ".bin", d.Extension())
	assert.Equal(t, "application/octet-stream", d.ContentType())
}

func TestDecodeArtifactPNGDataURI(t *testing.T) {
	payloads := [][]byte{
		{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'},
		[]byte("a"),
		[]byte("ab"),
		[]byte("abc"),
		make([]byte, 1024),
	}
	for _, p := range payloads {
		content := base64.StdEncoding.EncodeToString(p)
		d, err := DecodeArtifact("data:image/png;base64," + content)
		require.NoError(t, err)
		assert.Equal(t, "image/png", d.MIMEType)

		direct, err := base64.StdEncoding.DecodeString(content)
		require.NoError(t, err)
		assert.Equal(t, direct, d.Data)
		assert.Equal(t, ".png", d.Extension())
	}
}

func TestDecodeArtifactInvalidBase64NeverReturnsBytes(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"%%%%",
		"abc$",
		"data:image/png;base64,",
		"data:image/png;base64,@@@@",
		"data:image/png;base64",
		"a",
		"ab=c",
	}
	for _, in := range inputs {
		d, err := DecodeArtifact(in)
		assert.ErrorIs(t, err, ErrInvalidBase64, "input %q", in)
		assert.Nil(t, d, "input %q", in)
	}
}

func TestDecodeArtifactUnpaddedAndWrapped(t *testing.T) {
	d, err := DecodeArtifact("eyJmb28iOiJiYXIifQ")
	require.NoError(t, err)
	assert.Equal(t, `{"foo":"bar"}`, string(d.Data))

	d, err = DecodeArtifact("data:text/plain;base64,aGVs\nbG8=")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(d.Data))
	assert.Equal(t, ".txt", d.Extension())
}

func TestDecodeArtifactFromDocument(t *testing.T) {
	d, err := DecodeArtifact(geminiShaped)
	require.NoError(t, err)
	assert.Equal(t, "image/png", d.MIMEType)
	want, _ := base64.StdEncoding.DecodeString("iVBORw0KGgo=")
	assert.Equal(t, want, d.Data)
}

func TestDecodeArtifactDocumentDataURIWins(t *testing.T) {
	doc := `{"inlineData":{"mimeType":"image/png","data":"data:image/gif;base64,R0lGODlh"}}`
	d, err := DecodeArtifact(doc)
	require.NoError(t, err)
	assert.Equal(t, "image/gif", d.MIMEType)
}

func TestDecodeArtifactDocumentWithoutImage(t *testing.T) {
	d, err := DecodeArtifact(`{"message":"nothing to see"}`)
	assert.ErrorIs(t, err, ErrArtifactNotFound)
	assert.Nil(t, d)
}

func TestDecodeArtifactBrokenDocument(t *testing.T) {
	_, err := DecodeArtifact(`{"data":`)
	assert.ErrorIs(t, err, ErrInvalidDocument)
}

func TestDecodeArtifactNestedDocumentsAreBounded(t *testing.T) {
	_, err := DecodeArtifact(`{"data":"{\"data\":\"{\\\"data\\\":\\\"AQID\\\"}\"}"}`)
	assert.ErrorIs(t, err, ErrArtifactNotFound)

	d, err := DecodeArtifact(`{"data":"{\"data\":\"AQID\"}"}`)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, d.Data)
}

func TestSplitDataURI(t *testing.T) {
	mt, content, err := SplitDataURI("data:image/jpeg;base64,/9j/")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", mt)
	assert.Equal(t, "/9j/", content)

	mt, content, err = SplitDataURI("data:image/png,iVBORw0KGgo=")
	require.NoError(t, err)
	assert.Equal(t, "image/png", mt)
	assert.Equal(t, "iVBORw0KGgo=", content)

	mt, _, err = SplitDataURI("data:;base64,/9j/")
	require.NoError(t, err)
	assert.Empty(t, mt)

	mt, content, err = SplitDataURI("/9j/")
	require.NoError(t, err)
	assert.Empty(t, mt)
	assert.Equal(t, "/9j/", content)
}

func TestExtensionForMIME(t *testing.T) {
	cases := map[string]string{
		"image/jpeg":                ".jpg",
		"IMAGE/JPG":                 ".jpg",
		"image/png":                 ".png",
		"image/gif":                 ".gif",
		"image/webp":                ".webp",
		"image/bmp":                 ".bmp",
		"image/svg+xml":             ".svg",
		"application/pdf":           ".pdf",
		"text/plain; charset=utf-8": ".txt",
		"application/json":          ".json",
		"application/xml":           ".xml",
		"text/xml":                  ".xml",
		"video/mp4":                 ".bin",
		"":                          ".bin",
	}
	for in, want := range cases {
		assert.Equal(t, want, ExtensionForMIME(in), "mime %q", in)
	}
}

func TestContentTypeForName(t *testing.T) {
	assert.Equal(t, "image/jpeg", ContentTypeForName("images/20240101_abcd.JPEG"))
	assert.Equal(t, "image/svg+xml", ContentTypeForName("a.svg"))
	assert.Equal(t, "application/octet-stream", ContentTypeForName("noext"))
}

func TestExtensionFromURL(t *testing.T) {
	assert.Equal(t, ".jpg", ExtensionFromURL("https://cdn.example.com/a/b/921.JPG?x=1", ""))
	assert.Equal(t, ".png", ExtensionFromURL("https://cdn.example.com/render", "image/png"))
	assert.Equal(t, ".bin", ExtensionFromURL("https://cdn.example.com/render", ""))
	assert.Equal(t, ".webp", ExtensionFromURL("https://cdn.example.com/file.download", "image/webp"))
}

func TestIsInline(t *testing.T) {
	assert.False(t, IsInline("https://example.com/a.png"))
	assert.False(t, IsInline("HTTP://example.com/a.png"))
	assert.False(t, IsInline(""))
	assert.True(t, IsInline("data:image/png;base64,AAAA"))
	assert.True(t, IsInline("AAAA"))
}
