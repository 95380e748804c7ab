package bulk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reportFixture(t *testing.T) *Run {
	t.Helper()
	fn := func(ctx context.Context, id int) error {
		switch id {
		case 102:
			return fmt.Errorf("disk full")
		case 104:
			return Skip("not running")
		}
		return nil
	}
	run, err := Execute(context.Background(), 100, 105, fn, Options{})
	require.NoError(t, err)
	return run
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"text", "json", "csv", "table"} {
		f, err := ParseFormat(s)
		assert.NoError(t, err)
		assert.Equal(t, Format(s), f)
	}

	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestReport_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Report(&buf, reportFixture(t), FormatText))

	out := buf.String()
	assert.Contains(t, out, "102: disk full")
	assert.Contains(t, out, "104: not running")
	assert.Contains(t, out, "Failed:")
	assert.Contains(t, out, "Skipped:")
}

func TestReport_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Report(&buf, reportFixture(t), FormatJSON))

	var decoded struct {
		Start   int `json:"start"`
		End     int `json:"end"`
		Results []struct {
			ID      int    `json:"id"`
			Outcome string `json:"outcome"`
			Message string `json:"message"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	assert.Equal(t, 100, decoded.Start)
	assert.Equal(t, 105, decoded.End)
	require.Len(t, decoded.Results, 6)

	// rows come back in id order with outcomes attached
	assert.Equal(t, 100, decoded.Results[0].ID)
	assert.Equal(t, "success", decoded.Results[0].Outcome)
	assert.Equal(t, "failed", decoded.Results[2].Outcome)
	assert.Equal(t, "disk full", decoded.Results[2].Message)
	assert.Equal(t, "skipped", decoded.Results[4].Outcome)
}

func TestReport_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Report(&buf, reportFixture(t), FormatCSV))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 7) // header + 6 ids
	assert.Equal(t, "id,outcome,message", lines[0])
	assert.Equal(t, "102,failed,disk full", lines[3])
	assert.Equal(t, "104,skipped,not running", lines[5])
}

func TestReport_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Report(&buf, reportFixture(t), FormatTable))

	out := buf.String()
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "OUTCOME")
	assert.Contains(t, out, "disk full")
	assert.Equal(t, 7, strings.Count(strings.TrimRight(out, "\n"), "\n")+1)
}
