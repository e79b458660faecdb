package schedule

import "errors"

var (
	// ErrCyclicDependency is returned when the predecessor graph
	// contains a cycle
	ErrCyclicDependency = errors.New("cyclic dependency detected")

	// ErrTaskNotFound is returned when a task is not found
	ErrTaskNotFound = errors.New("task not found")

	// ErrEmployeeNotFound is returned when an employee is not found
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrProjectNotFound is returned when a project is not found
	ErrProjectNotFound = errors.New("project not found")

	// ErrNoEligibleEmployees is returned when no employee holds the
	// position a task requires
	ErrNoEligibleEmployees = errors.New("no employees with required position")

	// ErrNoAvailableDates is returned when no availability window was
	// found within the search horizon
	ErrNoAvailableDates = errors.New("no available dates within search horizon")
)
