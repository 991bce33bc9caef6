package pisa

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEngineServeCleanEOF(t *testing.T) {
	engine := NewEngine(fakeEvaluator{}, nil)
	err := engine.Serve(&bytes.Buffer{}, &bytes.Buffer{})
	require.NoError(t, err, "a clean end of stream before any command is not an error")
}

func TestEngineServeUnknownCommandIsFatal(t *testing.T) {
	engine := NewEngine(fakeEvaluator{}, nil)
	var req bytes.Buffer
	require.NoError(t, writeRequestHeader(&req, 0, 0xee))

	err := engine.Serve(&req, &bytes.Buffer{})
	require.Error(t, err)
}

func TestEngineRemoveOfUnknownIdIsRecoverable(t *testing.T) {
	engine := NewEngine(fakeEvaluator{}, nil)
	var req, reply bytes.Buffer
	require.NoError(t, writeRequestHeader(&req, 0, cmdRemove))
	require.NoError(t, EncodeData(&req, DList{DInt(999)}))

	done := make(chan error, 1)
	go func() { done <- engine.Serve(&req, &reply) }()
	require.NoError(t, <-done, "a recoverable EngineError must not end the session")

	seq, status, err := readReplyHeader(&reply)
	require.NoError(t, err)
	require.Equal(t, uint64(0), seq)
	require.Equal(t, replyFail, status)
}

func TestEngineEvalCodeRepliesWithEmptyList(t *testing.T) {
	engine := NewEngine(fakeEvaluator{}, nil)
	var req, reply bytes.Buffer
	require.NoError(t, writeRequestHeader(&req, 5, cmdEvalCode))
	require.NoError(t, putString(&req, "datatype exn = E_Int of int"))

	done := make(chan error, 1)
	go func() { done <- engine.Serve(&req, &reply) }()
	require.NoError(t, <-done)

	seq, status, err := readReplyHeader(&reply)
	require.NoError(t, err)
	require.Equal(t, uint64(5), seq)
	require.Equal(t, replyOK, status)
	data, err := DecodeData(&reply)
	require.NoError(t, err)
	require.Equal(t, DList{}, data)
}
