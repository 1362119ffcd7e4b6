/*
NaiveSystems Analyze - A tool for static code analysis
Copyright (C) 2023  Naive Systems Ltd.

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package runner

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
)

func GetPercentString(v1, v2 int) string {
	if v2 == 0 {
		return "100%"
	}
	return fmt.Sprintf("%d%%", v1*100/v2)
}

func FormatTimeDuration(d time.Duration) string {
	s := d / time.Second
	ms := (d - s*time.Second) / time.Millisecond
	if ms == 0 {
		return fmt.Sprintf("%ds", s)
	}
	return fmt.Sprintf("%d.%03ds", s, ms)
}

// Progress logs the start and the end of tasks, goroutine safe.
type Progress struct {
	mutex      sync.Mutex
	startedAt  time.Time
	taskStart  map[string]time.Time
	started    int
	finished   int
	total      int
	onFinished func(finished, total int)
}

// NewProgress tracks total tasks. onFinished, if not nil, is called after
// every task under the progress lock.
func NewProgress(total int, onFinished func(finished, total int)) *Progress {
	return &Progress{
		startedAt:  time.Now(),
		taskStart:  make(map[string]time.Time),
		total:      total,
		onFinished: onFinished,
	}
}

func (p *Progress) Start(name string) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.started++
	p.taskStart[name] = time.Now()
	glog.V(1).Infof("start %s (%d/%d)", name, p.started, p.total)
}

func (p *Progress) Finish(name string) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.finished++
	elapsed := time.Since(p.taskStart[name])
	delete(p.taskStart, name)
	glog.V(1).Infof("%s completed (%s, %d/%d) [%s]", name, GetPercentString(p.finished, p.total), p.finished, p.total, FormatTimeDuration(elapsed))
	if p.onFinished != nil {
		p.onFinished(p.finished, p.total)
	}
}

func (p *Progress) Finished() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.finished
}

func (p *Progress) StartedAt() time.Time {
	return p.startedAt
}
