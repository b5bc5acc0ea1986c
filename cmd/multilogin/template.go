package main

const defaultConfigTemplate = `# multilogin configuration
server:
  listen: "127.0.0.1:8080"
  timeout_ms: 30000
  max_concurrent: 0
  max_body_bytes: 65536
  enable_http2: false

logging:
  level: info
  format: console
  output: stdout
  debug_options:
    log_request_body: false
    max_body_log_size: 1000

rate_limit:
  enabled: true
  requests_per_minute: 30
  burst: 10

audit:
  enabled: true
  events_per_minute: 60

health:
  enabled: true
  circuit_breaker:
    failure_threshold: 5
    open_duration_ms: 30000
    half_open_probes: 3

login:
  enabled: true
  global:
    client_header: request-client
    client_types: [PC, APP]
    client_type_resolver: header
    parameter_extractors: [json, form]
    verify_timeout_ms: 5000
    handler:
      success: default_success
      failure: default_failure
  methods:
    password:
      principal_params: [username]
      credential_params: [password]
      verifiers:
        PC: demo_pc
        APP: demo_app
    sms:
      path: /login/sms
      principal_params: [mobile]
      credential_params: [code]
      client_types: [APP]
      verifiers:
        APP: demo_sms
`
