package groove

// ComputeBpm returns the exact tempo of a groove in the given domain
func ComputeBpm(domain Domain, g Groove, notesPerBeat int) float64 {
	if notesPerBeat <= 0 {
		notesPerBeat = 1
	}

	// Repeat the groove until it spans a whole number of beats.
	totalFrames, totalNotes := 0, 0
	for {
		totalFrames += g.Sum()
		totalNotes += len(g)
		if totalNotes%notesPerBeat == 0 {
			break
		}
	}

	framesPerBeat := float64(totalFrames) / float64(totalNotes) * float64(notesPerBeat)
	return domain.BpmNumerator() / framesPerBeat
}
