package process

import (
	procList "github.com/mitchellh/go-ps"
)

// Descendants lists every process below pid in the process table, parents
// before their children.
func Descendants(pid int) ([]int, error) {
	if pid <= 0 {
		return nil, nil
	}
	processes, err := procList.Processes()
	if err != nil {
		return nil, err
	}
	children := make(map[int][]int)
	for _, entry := range processes {
		children[entry.PPid()] = append(children[entry.PPid()], entry.Pid())
	}

	descendants := []int{}
	seen := map[int]bool{pid: true}
	queue := []int{pid}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, child := range children[current] {
			if seen[child] {
				continue
			}
			seen[child] = true
			descendants = append(descendants, child)
			queue = append(queue, child)
		}
	}
	return descendants, nil
}
