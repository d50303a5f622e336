package ui

type UI interface {
	UpdateStatus(status string)
	UpdateTurn(turn int)
	Log(msg string)
}

type SilentUI struct{}

func (s SilentUI) UpdateStatus(status string) {}
func (s SilentUI) UpdateTurn(turn int)        {}
func (s SilentUI) Log(msg string)             {}
