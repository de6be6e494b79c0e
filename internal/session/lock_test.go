package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocker_SerializesSameSession(t *testing.T) {
	locker := NewLocker()

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locker.Lock("s1")
			defer unlock()
			v := counter
			v++
			counter = v
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Equal(t, 0, locker.size())
}

func TestLocker_IndependentSessions(t *testing.T) {
	locker := NewLocker()

	unlockA := locker.Lock("a")
	done := make(chan struct{})
	go func() {
		unlock := locker.Lock("b")
		unlock()
		close(done)
	}()
	<-done
	assert.Equal(t, 1, locker.size())

	unlockA()
	unlockA()
	assert.Equal(t, 0, locker.size())
}
