package app

import (
	"grandlucky-quiz-service/internal/domain"
	"grandlucky-quiz-service/internal/seeded"
)

const (
	perTopicCap   = 2
	untaggedTopic = "general"
)

// balancedPick takes one question per topic per pass, at most perTopicCap
// per topic, then fills the rest in pool order. Topic order is personalized
// by g; order inside a topic follows the pool.
func balancedPick(ordered []domain.PoolQuestion, n int, g *seeded.Generator) []domain.PoolQuestion {
	if n <= 0 || len(ordered) == 0 {
		return nil
	}
	if n > len(ordered) {
		n = len(ordered)
	}

	var topics []string
	groups := make(map[string][]int)
	for i, q := range ordered {
		topic := q.Topic
		if topic == "" {
			topic = untaggedTopic
		}
		if _, ok := groups[topic]; !ok {
			topics = append(topics, topic)
		}
		groups[topic] = append(groups[topic], i)
	}
	topics = seeded.Shuffle(topics, g)

	used := make([]bool, len(ordered))
	picked := make([]domain.PoolQuestion, 0, n)
	for pass := 0; pass < perTopicCap && len(picked) < n; pass++ {
		for _, topic := range topics {
			if len(picked) == n {
				break
			}
			if pass < len(groups[topic]) {
				idx := groups[topic][pass]
				used[idx] = true
				picked = append(picked, ordered[idx])
			}
		}
	}
	for i, q := range ordered {
		if len(picked) == n {
			break
		}
		if !used[i] {
			used[i] = true
			picked = append(picked, q)
		}
	}
	return seeded.Shuffle(picked, g)
}
