package utils

import (
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerInitialisesOnceUnderParallelUse(t *testing.T) {
	InfoLogger, ErrorLogger = nil, nil
	lazyInit = sync.Once{}
	t.Cleanup(InitLogger)

	got := make([]*logrus.Logger, 16)
	var wg sync.WaitGroup
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = Logger()
		}(i)
	}
	wg.Wait()

	require.NotNil(t, got[0])
	for _, l := range got {
		assert.Same(t, got[0], l)
	}
	assert.NotNil(t, ErrorLogger)
}

func TestLoggerKeepsExplicitInit(t *testing.T) {
	InitLogger()
	want := InfoLogger
	assert.Same(t, want, Logger())
}
