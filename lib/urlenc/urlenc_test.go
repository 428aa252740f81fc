package urlenc_test

import (
	"testing"

	"oss.terrastruct.com/util-go/assert"

	"github.com/aadish0day/mermaid/lib/urlenc"
)

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	script := `sequenceDiagram
    participant Editor
    participant Engine
    Editor->>Engine: render(source)
    Engine-->>Editor: svg
`
	encoded, err := urlenc.Encode(script)
	assert.Success(t, err)

	decoded, err := urlenc.Decode(encoded)
	assert.Success(t, err)

	assert.String(t, script, decoded)
}

func TestDecodeGarbage(t *testing.T) {
	t.Parallel()

	_, err := urlenc.Decode("!!!not base64!!!")
	assert.ErrorString(t, err, "failed to decode mermaid source: illegal base64 data at input byte 0")
}
