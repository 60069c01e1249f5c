package pipeline

import "fmt"

// GenerationInstruction is sent unchanged to every selected backend.
func GenerationInstruction(language, question string) string {
	return fmt.Sprintf("As a highly skilled software engineer, please analyze the following question thoroughly "+
		"and provide optimized %s code for the problem: %s. Make sure to give only code.", language, question)
}

func ExplanationInstruction(code string) string {
	return fmt.Sprintf("As a highly skilled software engineer, please provide a detailed line-by-line explanation "+
		"of the following code:\n\n%s\n\nMake sure to explain what each line does and why it is used.", code)
}

func TimeComplexityInstruction(displayName, code string) string {
	return complexityInstruction("time", displayName, code)
}

func SpaceComplexityInstruction(displayName, code string) string {
	return complexityInstruction("space", displayName, code)
}

func complexityInstruction(dimension, displayName, code string) string {
	return fmt.Sprintf("As a software engineer, analyze the following %s generated code and provide its %s complexity "+
		"using Big O notation. Only provide the Big O notation without explanation.\n\n```%s```", displayName, dimension, code)
}
