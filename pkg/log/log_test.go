package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/node/utils/logging"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/luxfi/sealbid/pkg/ids"
)

func TestParseLevel(t *testing.T) {
	require := require.New(t)

	lvl, err := ParseLevel("debug")
	require.NoError(err)
	require.Equal(logging.Debug, lvl)

	lvl, err = ParseLevel("")
	require.NoError(err)
	require.Equal(logging.Info, lvl)

	_, err = ParseLevel("chatty")
	require.Error(err)
}

func TestNewWithLevelRejectsUnknownFormat(t *testing.T) {
	_, err := NewWithLevel("info", "xml", "")
	require.Error(t, err)
}

func TestFields(t *testing.T) {
	require := require.New(t)

	all := zapcore.Level(logging.Verbo)
	core, logs := observer.New(all)
	logger := Wrap(logging.NewLogger("", logging.WrappedCore{
		Core:        core,
		Writer:      logging.Discard,
		AtomicLevel: zap.NewAtomicLevelAt(all),
	})).With(String("component", "test"))

	addr := ids.GenerateTestAddress()
	logger.Info("paid", Address("to", addr), Amount("amount", uint256.NewInt(42)), Amount("none", nil))

	entries := logs.All()
	require.Len(entries, 1)
	require.Equal(zapcore.Level(logging.Info), entries[0].Level)
	ctx := entries[0].ContextMap()
	require.Equal("test", ctx["component"])
	require.Equal(addr.String(), ctx["to"])
	require.Equal("42", ctx["amount"])
	require.Equal("0", ctx["none"])
}

func TestLogFile(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	logger, err := NewWithLevel("info", "json", dir)
	require.NoError(err)
	logger.Debug("hidden")
	logger.Info("auction ended", Uint64("auction", 7))
	require.NoError(logger.Sync())

	data, err := os.ReadFile(filepath.Join(dir, "sealbid.log"))
	require.NoError(err)
	require.Contains(string(data), `"msg":"auction ended"`)
	require.Contains(string(data), `"auction":7`)
	require.NotContains(string(data), "hidden")
}

func TestNoOp(t *testing.T) {
	logger := NoOp()
	logger.Debug("nothing")
	logger.With(Int("n", 1)).Fatal("still nothing")
	require.NoError(t, logger.Sync())
}
