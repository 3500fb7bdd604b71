package logline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const sampleLine = "2025-12-19T05:22:06.751222+11:00 RS20300529 Kareela0: <E> [#4] EngineConductor: Changing state to FAULT"

func TestSelectRelevantLinePrefersErrorMarker(t *testing.T) {
	text := "\n2025-12-19T05:22:05 RS20300529 Kareela0: <I> [#4] EngineConductor: startup\n" +
		sampleLine + "\n" +
		"2025-12-19T05:22:07 RS20300529 Kareela0: <I> [#4] EngineConductor: retrying\n"
	assert.Equal(t, sampleLine, SelectRelevantLine(text))
}

func TestSelectRelevantLineFallsBackToFirst(t *testing.T) {
	assert.Equal(t, "plain message", SelectRelevantLine("\n\n  plain message  \nsecond line\n"))
	assert.Equal(t, "", SelectRelevantLine("  \n \n"))
}

func TestParseLineFull(t *testing.T) {
	p := ParseLine(sampleLine)
	assert.Equal(t, "2025-12-19T05:22:06.751222+11:00", p.Timestamp)
	assert.Equal(t, "RS20300529", p.HostOrSerial)
	assert.Equal(t, "Kareela0", p.Process)
	assert.Equal(t, "E", p.Level)
	assert.Equal(t, "#4", p.Thread)
	assert.Equal(t, "EngineConductor", p.Component)
	assert.Equal(t, "Changing state to FAULT", p.Message)
}

func TestParseLineWithoutTimestamp(t *testing.T) {
	p := ParseLine("RS20300529 Kareela0: <W> PaperPath: feed roller slip detected")
	assert.Equal(t, "", p.Timestamp)
	assert.Equal(t, "RS20300529", p.HostOrSerial)
	assert.Equal(t, "Kareela0", p.Process)
	assert.Equal(t, "W", p.Level)
	assert.Equal(t, "PaperPath", p.Component)
	assert.Equal(t, "feed roller slip detected", p.Message)
}

func TestParseLineBareMessage(t *testing.T) {
	p := ParseLine("something unusual happened")
	assert.Equal(t, "something unusual happened", p.Message)
	assert.Equal(t, "", p.Component)
	assert.Equal(t, "", p.Level)
}

func TestParseLineEmpty(t *testing.T) {
	p := ParseLine("   ")
	assert.Equal(t, "", p.Message)
}

func TestBuildKeys(t *testing.T) {
	p := ParseLine(sampleLine)
	keys := BuildKeys(p, false)
	assert.Equal(t, "EngineConductor: Changing state to FAULT", keys.KeyExact)
	assert.Equal(t, "engineconductor: changing state to fault", keys.KeyNormalized)
	assert.Equal(t, []string{"engineconductor", "changing", "state", "fault"}, keys.Tokens)
}

func TestBuildKeysNormalizesNumbers(t *testing.T) {
	p := ParseLine("Thermals: head 2 reached 104.7 C after 123456 cycles")
	keys := BuildKeys(p, true)
	assert.Equal(t, "thermals: head 2 reached <num> c after <num> cycles", keys.KeyNormalized)
	assert.Contains(t, keys.Tokens, "num")

	// Short integers survive.
	assert.Contains(t, keys.KeyNormalized, "head 2")
}

func TestAnalyzePasted(t *testing.T) {
	out := AnalyzePasted("noise line\n"+sampleLine+"\n", false)
	assert.Equal(t, sampleLine, out.SelectedLine)
	assert.Equal(t, "E", out.Level)
	assert.Equal(t, "engineconductor: changing state to fault", out.KeyNormalized)
}
