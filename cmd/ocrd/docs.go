package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           ocrd API
// @version         1.0
// @description     HTTP API for OCR model loading, progress telemetry and inference.
//
// @contact.name   ocrd maintainers
// @contact.url    https://github.com/your-org/ocrd
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
