package lib

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/chaosgate/chaosgate-go/pkg/log"
	"github.com/chaosgate/chaosgate-go/pkg/types"
	"github.com/pkg/errors"
)

// inProcessStress approximates the stress-ng stressors with goroutines when
// the binary is unavailable. CPU pressure comes from busy loops, memory from
// a held ballast slice and disk io from rewriting temp files.
type inProcessStress struct {
	failureType types.FailureType
	workers     int
	ballastMB   int

	stopOnce sync.Once
	done     chan struct{}
	wg       sync.WaitGroup

	mu      sync.Mutex
	ballast [][]byte
	tmpDir  string
}

func newInProcessStress(failureType types.FailureType, workers, ballastMB int) *inProcessStress {
	return &inProcessStress{
		failureType: failureType,
		workers:     workers,
		ballastMB:   ballastMB,
		done:        make(chan struct{}),
	}
}

func (p *inProcessStress) run(ctx context.Context, durationSeconds int) error {
	log.Infof("[Info]: Running %d in-process %s workers", p.workers, p.failureType)

	switch p.failureType {
	case types.FailureTypeCPU:
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.burnCPU()
		}
	case types.FailureTypeMemory:
		p.mu.Lock()
		for i := 0; i < p.ballastMB; i++ {
			block := make([]byte, 1<<20)
			for j := 0; j < len(block); j += 4096 {
				block[j] = 1
			}
			p.ballast = append(p.ballast, block)
		}
		p.mu.Unlock()
	case types.FailureTypeDiskIO:
		dir, err := os.MkdirTemp("", "chaosgate-io-")
		if err != nil {
			return errors.Errorf("fail to create scratch dir for io workers, err: %v", err)
		}
		p.mu.Lock()
		p.tmpDir = dir
		p.mu.Unlock()
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.churnDisk(filepath.Join(dir, "ballast-"+string(rune('a'+i))))
		}
	}

	timer := time.NewTimer(time.Duration(durationSeconds) * time.Second)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	case <-p.done:
	}
	p.stop()
	return nil
}

func (p *inProcessStress) burnCPU() {
	defer p.wg.Done()
	for {
		select {
		case <-p.done:
			return
		default:
			// yield occasionally so the scheduler stays responsive
			for i := 0; i < 1<<16; i++ {
				_ = i * i
			}
			runtime.Gosched()
		}
	}
}

func (p *inProcessStress) churnDisk(path string) {
	defer p.wg.Done()
	buf := make([]byte, 4<<20)
	for {
		select {
		case <-p.done:
			return
		default:
			if err := os.WriteFile(path, buf, 0600); err != nil {
				log.Warnf("io worker write failed, err: %v", err)
				time.Sleep(time.Second)
			}
		}
	}
}

func (p *inProcessStress) stop() {
	p.stopOnce.Do(func() { close(p.done) })
	p.wg.Wait()

	p.mu.Lock()
	p.ballast = nil
	dir := p.tmpDir
	p.mu.Unlock()
	if dir != "" {
		if err := os.RemoveAll(dir); err != nil {
			log.Warnf("unable to remove io scratch dir, err: %v", err)
		}
	}
}
