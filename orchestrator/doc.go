// Copyright (c) AgentFoundry Authors.
// Licensed under the MIT License.

/*
Package orchestrator coordinates build pipelines over role agents.

A pipeline runs five stages in a fixed order: architect, coder,
executor, critic, deployer. Each stage executes inside a reflexion loop
(see package agent) and hands its best artifacts to the next stage
through the shared task. Stage scores aggregate into an overall score;
reaching the evolution threshold spawns a next-generation child of
every stage agent and records it in the evolution tree.

# Usage

	orch, err := orchestrator.New(orchestrator.DefaultConfig(), agent.Deps{
		Inference:  inference,
		Healing:    healing,
		Deployment: deployment,
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	id, err := orch.CreatePipeline(ctx, "REST API for task management", nil)
	if err != nil {
		return err
	}
	result, err := orch.ExecutePipeline(ctx, id)

Pipelines execute at most once. Stage failures are part of the result,
not the error return: a failed stage contributes a zero score and the
pipeline finishes completed, partial or failed depending on how many
stages hard-failed. The error return is reserved for unknown pipelines,
repeated execution and context cancellation.

Independent pipelines may run concurrently via ExecutePipelines; they
share nothing but the evolution tree, which is safe for concurrent use.
*/
package orchestrator
