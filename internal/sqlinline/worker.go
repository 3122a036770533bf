package sqlinline

// QWorkerClaimRequest claims one pending project for background generation.
// claimed_at is worker bookkeeping only; the public status stays "pending"
// while scenes stream in so clients can poll partial output.
const QWorkerClaimRequest = `--sql 8e98752a-7200-4a5f-a9cb-5dcc37899b30
update content_creation_requests r
set claimed_at = now(),
    updated_at = now()
from (
  select id
  from content_creation_requests
  where status = 'pending'
    and claimed_at is null
  order by created_at
  limit 1
  for update skip locked
) next
where r.id = next.id
returning r.id;
`
