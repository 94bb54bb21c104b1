package forum

// backoffDelays is the fixed re-engagement schedule, indexed by how many
// replies the persona has already posted in the thread: 2m, 5m, 15m, 30m,
// 1h, 2h, 4h, 8h, then daily forever.
var backoffDelays = [...]int{2, 5, 15, 30, 60, 120, 240, 480, 1440}

// NextDelayMinutes maps a schedule's reply count to the delay before that
// persona's next reply. Deterministic and side-effect-free.
func NextDelayMinutes(replyCount int) int {
	if replyCount < 0 {
		replyCount = 0
	}
	if replyCount >= len(backoffDelays) {
		return backoffDelays[len(backoffDelays)-1]
	}
	return backoffDelays[replyCount]
}
