package config

type WorkerKeyStruct struct {
	PersistAuditsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistAuditsQueue: "persist_audits_queue",
}
