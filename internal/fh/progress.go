package fh

// Progress receives coarse step notifications during long operations.
type Progress interface {
	Step(n, total int, msg string)
}

// NopProgress ignores all notifications.
type NopProgress struct{}

func (NopProgress) Step(int, int, string) {}
