package schedule

const (
	// relaxationPassFactor bounds the label-correction loops at
	// factor * nodeCount full passes. A cycle-free graph converges in
	// far fewer; hitting the cap indicates a logic fault.
	relaxationPassFactor = 10

	sourceNode = 0
)

// corpDaysOff is the corporate default day-off pattern (Saturday and
// Sunday), applied when a task has no assigned employee or the
// employee declares no pattern of their own.
var corpDaysOff = []int{6, 7}
