package main

import (
	_ "github.com/eleven-am/streamsight/docs"
	"github.com/eleven-am/streamsight/internal/bootstrap"
)

// @title StreamSight Inference Gateway API
// @version 1.0.0
// @description Multimodal inference gateway: prompt plus optional video or image, answered by Gemini with per-session conversation memory.

// @BasePath /

func main() {
	bootstrap.Run()
}
