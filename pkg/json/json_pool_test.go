package json

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	HTML  string `json:"html,omitempty"`
}

func TestMarshalToWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, MarshalToWriter(&buf, sample{Name: "pool", Count: 8}))
	assert.Equal(t, "{\"name\":\"pool\",\"count\":8}\n", buf.String())

	buf.Reset()
	require.NoError(t, MarshalToWriter(&buf, sample{Name: "a", HTML: "<b>"}))
	assert.Contains(t, buf.String(), "<b>")
}

func TestMarshalIndentToWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, MarshalIndentToWriter(&buf, sample{Name: "pool", Count: 1}, "", "  "))
	assert.Equal(t, "{\n  \"name\": \"pool\",\n  \"count\": 1\n}\n", buf.String())

	// Indentation does not leak into the next call on the same buffer.
	buf.Reset()
	require.NoError(t, MarshalToWriter(&buf, sample{Name: "pool", Count: 1}))
	assert.Equal(t, "{\"name\":\"pool\",\"count\":1}\n", buf.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestMarshalToWriterErrors(t *testing.T) {
	err := MarshalToWriter(failingWriter{}, sample{})
	assert.EqualError(t, err, "disk full")

	var buf bytes.Buffer
	err = MarshalToWriter(&buf, map[string]interface{}{"ch": make(chan int)})
	require.Error(t, err)
	assert.Zero(t, buf.Len())
}

func TestMarshalLines(t *testing.T) {
	data, err := MarshalLines([]interface{}{
		sample{Name: "a", Count: 1},
		sample{Name: "b", Count: 2},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var got sample
	require.NoError(t, Unmarshal([]byte(lines[1]), &got))
	assert.Equal(t, sample{Name: "b", Count: 2}, got)
}

func TestBuffersAreReused(t *testing.T) {
	const workers = 8

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				var buf bytes.Buffer
				assert.NoError(t, MarshalToWriter(&buf, sample{Name: "x", Count: j}))
			}
		}()
	}
	wg.Wait()

	stats := BufferStats()
	assert.Greater(t, stats.Reused, int64(0))
	assert.Equal(t, int64(0), stats.InUse)
}

func TestLargeBuffersAreNotRetained(t *testing.T) {
	buf := bytes.NewBuffer(make([]byte, 0, 2*maxRetainedBuffer))
	s := &encodeSession{buf: buf}
	require.NoError(t, s.Close())
	assert.Zero(t, buf.Cap())

	small := bytes.NewBufferString("leftover")
	s = &encodeSession{buf: small}
	require.NoError(t, s.Close())
	assert.Zero(t, small.Len())
	assert.NotZero(t, small.Cap())
}

func TestMarshalRoundTrip(t *testing.T) {
	data, err := Marshal(sample{Name: "rt", Count: 3})
	require.NoError(t, err)

	var got sample
	require.NoError(t, Unmarshal(data, &got))
	assert.Equal(t, sample{Name: "rt", Count: 3}, got)

	pretty, err := MarshalIndent(got, "", "\t")
	require.NoError(t, err)
	assert.Contains(t, string(pretty), "\t\"name\"")
}
