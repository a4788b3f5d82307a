package pushdedup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTTL = 3600

func TestFirstTaskProceeds(t *testing.T) {
	d := New()
	guard, waitChan, rejected := d.tryAcquire("https://api.github.com/repos/o/r/pulls/1", 2, testTTL)
	assert.False(t, rejected)
	assert.NotNil(t, guard)
	assert.Nil(t, waitChan)
}

func TestSecondTaskWaitsWithBacklog(t *testing.T) {
	d := New()
	_, _, rejected1 := d.tryAcquire("https://api.github.com/repos/o/r/pulls/1", 2, testTTL)
	require.False(t, rejected1)

	guard, waitChan, rejected := d.tryAcquire("https://api.github.com/repos/o/r/pulls/1", 2, testTTL)
	assert.False(t, rejected)
	assert.NotNil(t, guard)
	assert.NotNil(t, waitChan)
}

func TestThirdTaskRejectedWithBacklog(t *testing.T) {
	d := New()
	_, _, r1 := d.tryAcquire("https://api.github.com/repos/o/r/pulls/1", 2, testTTL)
	require.False(t, r1)
	_, _, r2 := d.tryAcquire("https://api.github.com/repos/o/r/pulls/1", 2, testTTL)
	require.False(t, r2)

	_, _, rejected := d.tryAcquire("https://api.github.com/repos/o/r/pulls/1", 2, testTTL)
	assert.True(t, rejected)
}

func TestSecondTaskRejectedWithoutBacklog(t *testing.T) {
	d := New()
	_, _, r1 := d.tryAcquire("https://api.github.com/repos/o/r/pulls/1", 1, testTTL)
	require.False(t, r1)

	_, _, rejected := d.tryAcquire("https://api.github.com/repos/o/r/pulls/1", 1, testTTL)
	assert.True(t, rejected)
}

func TestDifferentURLsIndependent(t *testing.T) {
	d := New()
	_, _, r1 := d.tryAcquire("https://api.github.com/repos/o/r/pulls/1", 1, testTTL)
	require.False(t, r1)

	guard, waitChan, rejected := d.tryAcquire("https://api.github.com/repos/o/r/pulls/2", 1, testTTL)
	assert.False(t, rejected)
	assert.NotNil(t, guard)
	assert.Nil(t, waitChan)
}

func TestReleaseAllowsNewTask(t *testing.T) {
	d := New()
	guard, _, rejected := d.tryAcquire("https://api.github.com/repos/o/r/pulls/1", 1, testTTL)
	require.False(t, rejected)
	guard.Release()

	_, _, rejected2 := d.tryAcquire("https://api.github.com/repos/o/r/pulls/1", 1, testTTL)
	assert.False(t, rejected2)
}

func TestWaitAndProceed(t *testing.T) {
	d := New()
	url := "https://api.github.com/repos/o/r/pulls/99"

	g1, waitChan1, rejected := d.tryAcquire(url, 2, testTTL)
	require.False(t, rejected)
	require.Nil(t, waitChan1)

	done := make(chan bool, 1)
	go func() {
		g2, waitChan2, rejected2 := d.tryAcquire(url, 2, testTTL)
		if rejected2 || waitChan2 == nil {
			done <- false
			return
		}
		<-waitChan2
		g2.Release()
		done <- true
	}()

	time.Sleep(20 * time.Millisecond)
	g1.Release()

	select {
	case proceeded := <-done:
		assert.True(t, proceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("second task never proceeded")
	}
}

func TestTTLExpiresEntries(t *testing.T) {
	d := New()
	url := "https://api.github.com/repos/o/r/pulls/1"

	guard, _, rejected := d.tryAcquire(url, 1, 0)
	require.False(t, rejected)
	guard.Release()

	time.Sleep(5 * time.Millisecond)

	_, _, rejected2 := d.tryAcquire(url, 1, 0)
	assert.False(t, rejected2)
}
