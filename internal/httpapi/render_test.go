package httpapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderCSVQuoting(t *testing.T) {
	got := renderCSV(
		[]string{"roomnum", "roomname", "usemagic", "playercount"},
		[][]any{
			{int64(1697043915), "koko", false, 0},
			{int64(1697043916), `say "hi"`, true, 3},
		},
	)

	want := "\"roomnum\",\"roomname\",\"usemagic\",\"playercount\"\r\n" +
		"1697043915,\"koko\",false,0\r\n" +
		"1697043916,\"say \"\"hi\"\"\",true,3\r\n"
	assert.Equal(t, want, got)
}

func TestRenderCSVEmpty(t *testing.T) {
	// No rooms still yields the header, like the original server.
	got := renderCSV([]string{"gamestart"}, nil)
	assert.Equal(t, "\"gamestart\"\r\n", got)
}
