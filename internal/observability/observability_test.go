package observability

import (
	"bytes"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()

	RecordReduction("moment0", "plane", 12*time.Millisecond)
	RecordChunks("test", 3)
}

func TestWarnCarriesKind(t *testing.T) {
	prev := *Logger()
	defer SetLogger(prev)

	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))
	Warn(WarnVarianceMoment).Msg("second moment is a variance")
	assert.Contains(t, buf.String(), `"warning":"variance_moment"`)
	assert.Contains(t, buf.String(), `"level":"warn"`)
}

func TestSetLevel(t *testing.T) {
	prev := zerolog.GlobalLevel()
	defer zerolog.SetGlobalLevel(prev)
	require.NoError(t, SetLevel("warn"))
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
	require.NoError(t, SetLevel(""))
	assert.Error(t, SetLevel("loud"))
}
