package cases

// Not a case file: helpers shared by the cases, and a control function the
// rewriter must never touch.

func plainDouble(n int) int { return 2 * n }
