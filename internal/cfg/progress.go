package cfg

import (
	"io"

	"github.com/schollz/progressbar/v3"

	"grabarr/internal/models"
)

const unitsPerItem = 100

// progressObserver draws a terminal bar for one batch. Its callbacks run on the core's loop.
type progressObserver struct {
	bar     *progressbar.ProgressBar
	done    int
	current int
}

func newProgressObserver(w io.Writer, total int) *progressObserver {
	return &progressObserver{
		bar: progressbar.NewOptions(max(total, 1)*unitsPerItem,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription("Starting..."),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionSetRenderBlankState(true),
			progressbar.OptionFullWidth(),
		),
	}
}

func (p *progressObserver) advance(n int) {
	if n <= p.current {
		return
	}
	p.current = n
	_ = p.bar.Set(n)
}

// OnItemProgress implements models.Observer.
func (p *progressObserver) OnItemProgress(_ string, fraction float64) {
	p.advance(p.done*unitsPerItem + int(fraction*unitsPerItem))
}

// OnItemState implements models.Observer.
func (p *progressObserver) OnItemState(string, models.ItemState, error) {}

// OnBatchProgress implements models.BatchProgressObserver.
func (p *progressObserver) OnBatchProgress(result models.BatchResult) {
	p.done = result.Completed + result.Failed
	p.advance(p.done * unitsPerItem)
}

// OnBatchComplete implements models.Observer.
func (p *progressObserver) OnBatchComplete(models.BatchResult) {
	_ = p.bar.Finish()
}

// OnError implements models.Observer.
func (p *progressObserver) OnError(string) {}

// OnStatus implements app.StatusListener.
func (p *progressObserver) OnStatus(text string) {
	p.bar.Describe(text)
}
