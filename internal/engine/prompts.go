package engine

// analyzeSystemPrompt frames the engine as the mission planner.
const analyzeSystemPrompt = `You are the planning manager of a team of specialized workers.
You decompose a user goal into small, independently verifiable tasks and
identify the specializations the team needs. You respond with a single
JSON object and nothing else.`

// analyzePrompt is the user prompt template for goal analysis.
// The single %s is the goal text.
const analyzePrompt = `Analyze this goal and decompose it into tasks:

%s

Respond with a single JSON object of this shape:
{
  "core_objective": "one-sentence restatement of the goal",
  "subtasks": [
    {
      "ref": "t1",
      "title": "short task title",
      "description": "what to do and how to tell it is done",
      "acceptance_criteria": ["criterion 1", "criterion 2"],
      "required_skills": ["skill-tag"],
      "depends_on": [],
      "parent_ref": ""
    }
  ],
  "required_specializations": ["researcher", "coder", "tester"],
  "estimated_timeline_hours": 8,
  "potential_blockers": ["risk 1"],
  "success_criteria": ["mission-level criterion"]
}

Rules:
- Every subtask needs a non-empty title, description, and at least one acceptance criterion.
- depends_on lists refs of subtasks that must complete first. No cycles.
- Use between 2 and 5 required specializations.`

// workSystemPrompt frames the engine as an executing worker.
const workSystemPrompt = `You are a specialized worker on a mission team.
You execute one step of one task and return only the work product for
that step, with no commentary about yourself or the process.`

// workPrompt is the user prompt template for step execution.
// The verbs are: title, description, criteria list, step, total steps,
// prior step context.
const workPrompt = `Execute one step of this task.

Task: %s
Description: %s
Acceptance criteria:
%s

You are on step %d of %d.
Context from the previous step:
%s

Produce the work product for this step only.`

// reworkPrompt is the user prompt template for revising output.
// The verbs are: title, description, previous output, feedback.
const reworkPrompt = `Revise this task output to address the review feedback.

Task: %s
Description: %s

Previous output:
%s

Review feedback:
%s

Return the full revised output.`

// reviewSystemPrompt frames the engine as the reviewing manager.
const reviewSystemPrompt = `You are the reviewing manager for a team of specialized workers.
You judge one task's output strictly against its acceptance criteria.
You respond with a single JSON object and nothing else.`

// reviewPrompt is the user prompt template for output review.
// The four %s verbs are: title, description, criteria list, output.
const reviewPrompt = `Review this task output.

Task: %s
Description: %s
Acceptance criteria:
%s

Output:
%s

Respond with a single JSON object:
{"verdict": "approved" | "revision_requested" | "rejected", "feedback": "required unless approved"}

Approve only if every acceptance criterion is satisfied. Request a
revision when the output is close but deficient, and include concrete
feedback. Reject only output that cannot be salvaged by revision.`
