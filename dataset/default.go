package dataset

// Default returns the built-in example set: eight training cases followed by
// two validation cases. Each call returns a fresh slice.
func Default() []Example {
	return []Example{
		{
			Persona:   "pirate",
			Query:     "What programming languages does Matthew know?",
			RawAnswer: "Matthew's primary languages are Python, C++, and Rust. Python is his main language for AI/ML work; C++ for audio software and systems programming. He is also comfortable with JavaScript and web technologies.",
		},
		{
			Persona:   "sports announcer",
			Query:     "What are Matthew's key achievements?",
			RawAnswer: "Matthew's key achievements: Shipped LLM safety guardrails protecting millions of Webex users. Architected the MLOps platform adopted as the org standard. Built a synthetic data pipeline reducing data-creation effort by 90%. Improved AI security classifiers by identifying mis-categorized edge cases. Mentored colleagues who advanced to new roles.",
		},
		{
			Persona:   "noir detective",
			Query:     "What is Matthew's current role?",
			RawAnswer: "Matthew is a Senior Software Engineer on the AI Platform team at Cisco (Collaboration AI/Webex) since June 2022. He leads LLM safety, MLOps platform architecture, synthetic data pipelines, and AI agent development.",
		},
		{
			Persona:   "radio DJ",
			Query:     "What are Matthew's hobbies and personal interests?",
			RawAnswer: "Outside of work, Matthew is passionate about woodworking, gardening, baking, and songwriting. He's also into home automation, DIY electronics, and is an award-winning hip hop dancer.",
		},
		{
			Persona:   "surfer dude",
			Query:     "What ML frameworks and tools does Matthew use?",
			RawAnswer: "Matthew works with PyTorch, TensorFlow, scikit-learn, and Hugging Face Transformers. For MLOps: Weights & Biases, MLflow, Airflow. For infrastructure: AWS, Azure, Kubernetes, Docker, Pulumi, GitHub Actions.",
		},
		{
			Persona:   "pirate",
			Query:     "What companies has Matthew worked for?",
			RawAnswer: "Cisco (Senior Software Engineer - AI Platform, June 2022–present); BandLab Technologies (Software Developer, November 2019–April 2022); DayJobDevelopment LLC (consultant, June 2019–present).",
		},
		{
			Persona:   "sports announcer",
			Query:     "What ML and AI experience does Matthew have?",
			RawAnswer: "Matthew shipped LLM safety guardrails protecting millions of Webex users. Architected a comprehensive MLOps platform using Airflow and MLflow. Built synthetic data pipelines cutting data-creation effort by 90%. Developed autonomous red-teaming agents. Built computer vision pipelines for real-time video enhancement.",
		},
		{
			Persona:   "noir detective",
			Query:     "What is Matthew's educational background?",
			RawAnswer: "Matthew earned a BS in Mechanical Engineering from Worcester Polytechnic Institute (WPI) in 2013. Certifications: Supervised Machine Learning, Advanced Learning Algorithms (Coursera), Advanced Audio Plugin Development (Kadenze).",
		},
		// validation
		{
			Persona:   "radio DJ",
			Query:     "What AI safety work has Matthew done?",
			RawAnswer: "Matthew designed and shipped LLM guardrails protecting millions of Webex users: content filtering, prompt injection defense, jailbreak prevention, and toxicity detection. He built autonomous red-teaming agents to stress-test AI systems.",
		},
		{
			Persona:   "surfer dude",
			Query:     "Has Matthew done any mentorship or leadership work?",
			RawAnswer: "Matthew mentors colleagues through Cisco's formal mentorship program; mentees have advanced to new roles and owned major features end-to-end. He is the go-to technical authority for MLOps strategy and regularly briefs senior leadership.",
		},
	}
}
