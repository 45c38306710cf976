// Copyright (c) AgentFoundry Authors.
// Licensed under the MIT License.

/*
Package cluster distributes role work across processes through Redis.

Each role has one list queue ("tasks:architect", ...). Submitters RPUSH
JSON envelopes; workers BLPOP them, process each with a fresh
generation-0 role agent driven through the reflexion loop, and RPUSH a
WorkResult onto "results:{task id}" with a bounded TTL. Workers
heartbeat every claim cycle ("heartbeat:{worker id}") and keep
per-worker counters in a Redis hash ("worker:{worker id}").

A Pool runs one worker per pipeline role plus a monitor that restarts
workers whose goroutine exited or whose heartbeat went stale:

	client, err := cluster.Dial(cfg.Redis)
	if err != nil {
		return err
	}
	defer client.Close()

	queue := cluster.NewQueue(client, cfg.Cluster, logger)
	pool, err := cluster.NewPool(queue, deps, cluster.DefaultPoolConfig())
	if err != nil {
		return err
	}
	if err := pool.Start(ctx); err != nil {
		return err
	}
	defer pool.Shutdown(shutdownCtx)

	res, err := pool.Execute(ctx, &cluster.Envelope{
		Role: types.RoleExecutor,
		Task: task,
	})

Delivery is at-most-once: a worker killed mid-task loses that claim,
and the submitter's AwaitResult runs into its context deadline. Callers
needing stronger guarantees resubmit on timeout.
*/
package cluster
