package optimizer

// Default search parameters
const (
	DefaultNumCandidates          = 10
	DefaultNumTrials              = 15
	DefaultMinibatchSize          = 2
	DefaultMinibatchFullEvalSteps = 10
	DefaultBootstrapThreshold     = 0.7
	DefaultSeed                   = 9
)

// ucbExploration weights the exploration term of the candidate picker.
const ucbExploration = 1.0

// proposalSchemaName names the structured reply requested from the proposer.
const proposalSchemaName = "instruction_proposal"

// maxSummaryQueries bounds the sample queries shown to the proposer.
const maxSummaryQueries = 5

// Proposal tips rotate across candidates so drafts differ in style.
var proposalTips = []string{
	"",
	"Don't be afraid to be creative when writing the new instruction!",
	"Keep the instruction clear and concise.",
	"Make sure your instruction is very informative and descriptive.",
	"The instruction should include a high stakes scenario in which the LM must solve the task!",
	`Include a persona that is relevant to the task in the instruction (ie. "You are a ...").`,
}
