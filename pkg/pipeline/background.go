package pipeline

import (
	"context"
	"sync"
	"time"
)

// backgroundTimeout bounds one background pass
const backgroundTimeout = 60 * time.Second

// backgroundRunner serializes background learning work per (user, persona)
// pair. Summarization, memory extraction, and preference updates all write
// to per-pair state; interleaving two passes for the same pair could leave
// partial updates behind. Different pairs run concurrently.
type backgroundRunner struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
	wg    sync.WaitGroup
}

func newBackgroundRunner() *backgroundRunner {
	return &backgroundRunner{locks: map[string]*sync.Mutex{}}
}

func (r *backgroundRunner) pairLock(userID, personaID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := userID + "\x00" + personaID
	lock, ok := r.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[key] = lock
	}
	return lock
}

// schedule runs one background pass detached from the turn. It must never
// block the user-visible reply.
func (r *backgroundRunner) schedule(p *Pipeline, userID, personaID, conversationID string) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		lock := r.pairLock(userID, personaID)
		lock.Lock()
		defer lock.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
		defer cancel()

		p.runBackground(ctx, userID, personaID, conversationID)
	}()
}

func (r *backgroundRunner) wait() {
	r.wg.Wait()
}

// runBackground performs the end-of-turn learning work. Every step is
// best-effort: failures log and move on.
func (p *Pipeline) runBackground(ctx context.Context, userID, personaID, conversationID string) {
	should, err := p.summarizer.ShouldSummarize(ctx, conversationID)
	if err != nil {
		p.logger.Warn("summary trigger check failed", map[string]interface{}{
			"conversation_id": conversationID,
			"error":           err.Error(),
		})
	}
	for should {
		if _, err := p.summarizer.Summarize(ctx, conversationID); err != nil {
			p.logger.Warn("background summarization failed", map[string]interface{}{
				"conversation_id": conversationID,
				"error":           err.Error(),
			})
			break
		}
		should, err = p.summarizer.ShouldSummarize(ctx, conversationID)
		if err != nil {
			break
		}
	}

	extract, err := p.extractor.ShouldExtract(ctx, conversationID)
	if err != nil {
		p.logger.Warn("memory trigger check failed", map[string]interface{}{
			"conversation_id": conversationID,
			"error":           err.Error(),
		})
	} else if extract {
		p.extractor.Extract(ctx, userID, personaID, conversationID)
	}

	update, err := p.learner.ShouldUpdate(ctx, userID, personaID)
	if err != nil {
		p.logger.Warn("preference trigger check failed", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
	} else if update {
		if _, err := p.learner.Update(ctx, userID, personaID); err != nil {
			p.logger.Warn("background preference update failed", map[string]interface{}{
				"user_id": userID,
				"error":   err.Error(),
			})
		}
	}
}
