// Copyright (c) AgentFoundry Authors.
// Licensed under the MIT License.

/*
Package agent implements the self-improving stage agents at the heart of
AgentFoundry.

# Overview

Every pipeline stage (architect, coder, executor, critic, deployer) is
worked by a RoleAgent: an Agent identity carrying a Strategy and a
MemoryLog, wrapped by role-specific Execute logic. A ReflexionRunner
drives the agent through up to MaxLoops attempts of the same task,
scoring each attempt, remembering it, and letting the MetaLearner
adjust the strategy before the next attempt.

# The reflexion loop

Each iteration runs four phases:

	execute   the role's Execute produces a stage result
	score     deterministic per-role heuristics rate it in [0, 1]
	remember  the attempt and its score land in the memory log
	adjust    the meta-learner reads the score trend and nudges the
	          strategy (more thoroughness when improving, more
	          temperature and a mode rotation when declining)

The loop keeps the best result seen so far and exits early when a score
reaches the configured threshold. A failed iteration is remembered with
a zero score and the loop continues; the run as a whole fails only when
every iteration failed.

# Strategies

A Strategy is a mode plus numeric parameters in [0.1, 1.0]. Each role
has its own mode rotation (the architect cycles through architecture
styles, the coder through coding styles, and so on) and its own default
temperature. Children spawned from a high-performing agent inherit the
parent's strategy as their starting point.

# Usage

	ag, err := agent.NewRoleAgent("coder_1", types.RoleCoder, 0, "", agent.Deps{
	    Inference: inference,
	    Healing:   healing,
	    Logger:    logger,
	})
	if err != nil {
	    return err
	}

	runner, err := agent.NewReflexionRunner(agent.DefaultReflexionConfig(), nil, logger)
	if err != nil {
	    return err
	}

	res, err := runner.Run(ctx, ag, task)
	if err != nil {
	    return err
	}
	fmt.Println(res.BestScore, res.LoopsExecuted)
*/
package agent
