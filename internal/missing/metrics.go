// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package missing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "placement",
		Name:      "missing_events",
		Help:      "log entries applied to missing sets",
	}, []string{"op"})

	mSplitMoved = promauto.NewCounter(prometheus.CounterOpts{
		Subsystem: "placement",
		Name:      "missing_split_moved",
		Help:      "missing objects moved to child placement groups",
	})
)
