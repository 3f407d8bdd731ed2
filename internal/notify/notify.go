package notify

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Notifier is the user-visible alert surface. ShowLoading presents a
// blocking busy indicator until Hide is called; ShowError is a one-shot
// error alert with no blocking semantics.
type Notifier interface {
	ShowLoading(title, message string)
	Hide()
	ShowError(title, message string)
}

// LogNotifier renders alerts onto a terminal through logrus. It stands in
// for the modal surface a graphical front end would provide.
type LogNotifier struct {
	logger logrus.FieldLogger

	mu     sync.Mutex
	active bool
	title  string
}

func NewLogNotifier(logger logrus.FieldLogger) *LogNotifier {
	if logger == nil {
		logger = logrus.New()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) ShowLoading(title, message string) {
	n.mu.Lock()
	n.active = true
	n.title = title
	n.mu.Unlock()
	n.logger.WithField("title", title).Info(message)
}

func (n *LogNotifier) Hide() {
	n.mu.Lock()
	wasActive := n.active
	title := n.title
	n.active = false
	n.title = ""
	n.mu.Unlock()
	if wasActive {
		n.logger.WithField("title", title).Debug("done")
	}
}

func (n *LogNotifier) ShowError(title, message string) {
	n.logger.WithField("title", title).Error(message)
}

// Nop discards every notification. Useful for embedding the client where
// no alert surface exists.
type Nop struct{}

func (Nop) ShowLoading(title, message string) {}
func (Nop) Hide()                             {}
func (Nop) ShowError(title, message string)   {}
