package config

type WorkerKeyStruct struct {
	PersistCheatsQueue        string
	PersistAnswersQueue       string
	PersistResultsQueue       string
	PersistQuestionOrderQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistCheatsQueue:        "persist_cheats_queue",
	PersistAnswersQueue:       "persist_answers_queue",
	PersistResultsQueue:       "persist_results_queue",
	PersistQuestionOrderQueue: "persist_question_order_queue",
}
