package usecase

type nopMetrics struct{}

func (nopMetrics) RecordPrediction(string, string) {}
func (nopMetrics) RecordError(string) {}
func (nopMetrics) RecordLastPrice(string, float64) {}
func (nopMetrics) RecordLatency(string, float64) {}
func (nopMetrics) RecordQueueDepth(string, int) {}
func (nopMetrics) RecordQueueWait(string, float64) {}
func (nopMetrics) RecordRateLimited(string) {}
