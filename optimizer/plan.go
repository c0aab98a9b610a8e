package optimizer

// fullEveryTrial reports whether a minibatch already covers the validation set.
func (c Config) fullEveryTrial(valSize int) bool {
	return c.MinibatchSize >= valSize
}

// fullEvalCount is the number of extra full evaluations in minibatch mode.
func (c Config) fullEvalCount() int {
	n := c.NumTrials / c.MinibatchFullEvalSteps
	if c.NumTrials%c.MinibatchFullEvalSteps != 0 {
		n++
	}
	return n
}

// planRun estimates the LM calls of a run. Every task call is followed by
// one metric call.
func (c Config) planRun(trainSize, valSize, labeled int) Plan {
	p := Plan{
		Candidates:    c.NumCandidates,
		Trials:        c.NumTrials,
		ProposerCalls: c.NumCandidates - 1,
	}

	if c.MaxBootstrappedDemos > 0 {
		p.TaskCalls += trainSize - min(labeled, c.MaxLabeledDemos)
	}

	p.TaskCalls += valSize
	if c.fullEveryTrial(valSize) {
		p.TaskCalls += c.NumTrials * valSize
	} else {
		p.TaskCalls += c.NumTrials*c.MinibatchSize + c.fullEvalCount()*valSize
	}
	p.MetricCalls = p.TaskCalls
	return p
}
