package models

// Observer receives orchestration events. Implementations must not block.
type Observer interface {
	OnItemProgress(handle string, fraction float64)
	OnItemState(handle string, state ItemState, err error)
	OnBatchComplete(result BatchResult)
	OnError(message string)
}

// BatchProgressObserver is implemented by observers that want the running batch result
// after every finished item.
type BatchProgressObserver interface {
	OnBatchProgress(result BatchResult)
}

// NopObserver ignores all events.
type NopObserver struct{}

func (NopObserver) OnItemProgress(string, float64) {}
func (NopObserver) OnItemState(string, ItemState, error) {}
func (NopObserver) OnBatchComplete(BatchResult) {}
func (NopObserver) OnError(string) {}
